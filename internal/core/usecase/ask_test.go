package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

func newAskUseCase(
	translator *fakeTranslator,
	index *fakeIndex,
	encoder *fakeCrossEncoder,
	generator *fakeGenerator,
	interactions *fakeInteractionRepo,
	queue *fakeJudgeQueue,
) *AskUseCase {
	return NewAskUseCase(
		translator,
		&fakeEmbedder{},
		index,
		encoder,
		generator,
		interactions,
		queue,
		testPersonas(),
		AskParams{RetrievalTopK: 15, RerankTopN: 3, RerankThreshold: 0.25, GenerationTimeout: time.Second},
		nil,
	)
}

func TestAskAnswersInPersonaVoice(t *testing.T) {
	translator := &fakeTranslator{language: domain.LanguagePidgin, english: "my landlord wants to evict me"}
	index := &fakeIndex{result: domain.RetrievalResult{
		scoredChunk("c1", "Section 13", "Tenancy Law, Section 13.\nNotice periods.", 0.9),
		scoredChunk("c2", "Section 2", "Tenancy Law, Section 2.\nDefinitions.", 0.8),
	}}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 13": 0.8, "Section 2": 0.1}}
	generator := &fakeGenerator{answer: "My guy, dis law talk say you get six months notice."}
	interactions := &fakeInteractionRepo{}
	queue := &fakeJudgeQueue{}

	uc := newAskUseCase(translator, index, encoder, generator, interactions, queue)
	answer, err := uc.Ask(context.Background(), "landlord wan comot me", "street lawyer")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.Text != "My guy, dis law talk say you get six months notice." {
		t.Fatalf("unexpected answer %q", answer.Text)
	}
	if len(answer.CitedSections) != 1 || answer.CitedSections[0] != "Section 13" {
		t.Fatalf("expected only Section 13 cited, got %v", answer.CitedSections)
	}
	if answer.Degraded {
		t.Fatal("answer should not be degraded")
	}
	if index.lastK != 15 {
		t.Fatalf("expected top-15 retrieval, got %d", index.lastK)
	}

	// The raw dialect question goes to the generator, not the translation.
	if !strings.Contains(generator.prompt, "landlord wan comot me") {
		t.Fatalf("prompt missing raw query: %q", generator.prompt)
	}
	if strings.Contains(generator.prompt, "Section 2.") {
		t.Fatalf("prompt leaked sub-threshold chunk: %q", generator.prompt)
	}

	if len(interactions.appended) != 1 {
		t.Fatalf("expected 1 recorded interaction, got %d", len(interactions.appended))
	}
	recorded := interactions.appended[0]
	if recorded.Query.RawText != "landlord wan comot me" {
		t.Fatalf("interaction missing raw query: %+v", recorded.Query)
	}
	if recorded.Query.NormalizedText != "my landlord wants to evict me" {
		t.Fatalf("interaction missing normalized query: %+v", recorded.Query)
	}
	if len(queue.published) != 1 || queue.published[0] != answer.InteractionID {
		t.Fatalf("expected judge request for %s, got %v", answer.InteractionID, queue.published)
	}
}

func TestAskEmptyRerankYieldsNoGroundingReply(t *testing.T) {
	translator := &fakeTranslator{language: domain.LanguageEnglish}
	index := &fakeIndex{result: domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nShort title.", 0.4),
	}}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 1": 0.05}}
	generator := &fakeGenerator{answer: "should not be called"}
	interactions := &fakeInteractionRepo{}
	queue := &fakeJudgeQueue{}

	uc := newAskUseCase(translator, index, encoder, generator, interactions, queue)
	answer, err := uc.Ask(context.Background(), "can my cousin claim my car?", "street lawyer")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.Text != testPersonas()["street lawyer"].NoGroundingReply {
		t.Fatalf("expected localized refusal, got %q", answer.Text)
	}
	if len(answer.CitedSections) != 0 {
		t.Fatalf("expected no citations, got %v", answer.CitedSections)
	}
	if generator.prompt != "" {
		t.Fatal("generator must not run without grounding")
	}
	if len(interactions.appended) != 1 {
		t.Fatalf("refusals are still recorded, got %d interactions", len(interactions.appended))
	}
	if len(queue.published) != 0 {
		t.Fatalf("nothing to judge, got %v", queue.published)
	}
}

func TestRetrieveGroundingSignalsNoRelevantLaw(t *testing.T) {
	index := &fakeIndex{result: domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nShort title.", 0.4),
	}}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 1": 0.05}}

	uc := newAskUseCase(&fakeTranslator{}, index, encoder, &fakeGenerator{}, &fakeInteractionRepo{}, &fakeJudgeQueue{})
	_, err := uc.retrieveGrounding(context.Background(), "can my cousin claim my car?")
	if !domain.IsKind(err, domain.ErrNoRelevantLaw) {
		t.Fatalf("expected ErrNoRelevantLaw, got %v", err)
	}
}

func TestAskTranslationFailureDegradesInsteadOfFailing(t *testing.T) {
	translator := &fakeTranslator{err: errors.New("model unavailable")}
	index := &fakeIndex{result: domain.RetrievalResult{
		scoredChunk("c1", "Section 13", "Tenancy Law, Section 13.\nNotice periods.", 0.9),
	}}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 13": 0.8}}
	generator := &fakeGenerator{answer: "Basically, the law states that notice is required."}
	interactions := &fakeInteractionRepo{}
	queue := &fakeJudgeQueue{}

	uc := newAskUseCase(translator, index, encoder, generator, interactions, queue)
	answer, err := uc.Ask(context.Background(), "landlord wan comot me", "plain english")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if !answer.Degraded {
		t.Fatal("expected degraded answer after translation failure")
	}
	recorded := interactions.appended[0]
	if recorded.Query.NormalizedText != "landlord wan comot me" {
		t.Fatalf("expected raw text fallback, got %q", recorded.Query.NormalizedText)
	}
	if recorded.Query.DetectedLanguage != domain.LanguageUnknown {
		t.Fatalf("expected unknown language, got %v", recorded.Query.DetectedLanguage)
	}
}

func TestAskUnknownPersonaIsInvalidInput(t *testing.T) {
	uc := newAskUseCase(&fakeTranslator{}, &fakeIndex{}, &fakeCrossEncoder{}, &fakeGenerator{}, &fakeInteractionRepo{}, &fakeJudgeQueue{})
	_, err := uc.Ask(context.Background(), "question", "nonexistent persona")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAskEmptyQueryIsInvalidInput(t *testing.T) {
	uc := newAskUseCase(&fakeTranslator{}, &fakeIndex{}, &fakeCrossEncoder{}, &fakeGenerator{}, &fakeInteractionRepo{}, &fakeJudgeQueue{})
	_, err := uc.Ask(context.Background(), "   ", "street lawyer")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAskGenerationTimeoutIsTemporary(t *testing.T) {
	translator := &fakeTranslator{language: domain.LanguageEnglish}
	index := &fakeIndex{result: domain.RetrievalResult{
		scoredChunk("c1", "Section 13", "Tenancy Law, Section 13.\nNotice periods.", 0.9),
	}}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 13": 0.8}}
	generator := &fakeGenerator{err: context.DeadlineExceeded}
	interactions := &fakeInteractionRepo{}
	queue := &fakeJudgeQueue{}

	uc := newAskUseCase(translator, index, encoder, generator, interactions, queue)
	_, err := uc.Ask(context.Background(), "how much notice before eviction", "plain english")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if len(interactions.appended) != 0 {
		t.Fatal("failed generation must not record an interaction")
	}
}

func TestAskQueueFailureDoesNotFailAnswer(t *testing.T) {
	translator := &fakeTranslator{language: domain.LanguageEnglish}
	index := &fakeIndex{result: domain.RetrievalResult{
		scoredChunk("c1", "Section 13", "Tenancy Law, Section 13.\nNotice periods.", 0.9),
	}}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 13": 0.8}}
	generator := &fakeGenerator{answer: "Basically, the law states that notice is required."}
	interactions := &fakeInteractionRepo{}
	queue := &fakeJudgeQueue{publishErr: errors.New("nats down")}

	uc := newAskUseCase(translator, index, encoder, generator, interactions, queue)
	answer, err := uc.Ask(context.Background(), "how much notice before eviction", "plain english")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text == "" {
		t.Fatal("expected an answer despite queue failure")
	}
	if len(interactions.appended) != 1 {
		t.Fatal("interaction must still be recorded")
	}
}
