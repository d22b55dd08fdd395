package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

type fakeDocumentRepo struct {
	byChecksum map[string]*domain.LegalDocument
	created    []*domain.LegalDocument
	createErr  error
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.LegalDocument) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, sourceID string) (*domain.LegalDocument, error) {
	for _, doc := range f.created {
		if doc.SourceID == sourceID {
			return doc, nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(sourceID))
}

func (f *fakeDocumentRepo) GetByChecksum(_ context.Context, checksum string) (*domain.LegalDocument, error) {
	if doc, ok := f.byChecksum[checksum]; ok {
		return doc, nil
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(checksum))
}

type fakeChunker struct {
	chunks []domain.Chunk
}

func (f *fakeChunker) Chunk(*domain.LegalDocument) []domain.Chunk {
	return f.chunks
}

type fakeEmbedder struct {
	queryVector []float32
	queryErr    error
	embedded    []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedded = append(f.embedded, texts...)
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.embedded = append(f.embedded, text)
	if f.queryVector != nil {
		return f.queryVector, nil
	}
	return []float32{1, 0}, nil
}

type fakeIndex struct {
	result       domain.RetrievalResult
	queryErr     error
	upserted     []domain.EmbeddedChunk
	invalidated  []string
	lastK        int
	hasSource    bool
	hasSourceErr error
}

func (f *fakeIndex) Upsert(_ context.Context, chunks []domain.EmbeddedChunk) error {
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int) (domain.RetrievalResult, error) {
	f.lastK = k
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.result, nil
}

func (f *fakeIndex) Invalidate(_ context.Context, sourceID string) error {
	f.invalidated = append(f.invalidated, sourceID)
	return nil
}

func (f *fakeIndex) HasSource(context.Context, string) (bool, error) {
	if f.hasSourceErr != nil {
		return false, f.hasSourceErr
	}
	return f.hasSource, nil
}

func (f *fakeIndex) Mode() string { return "ephemeral" }

type fakeTranslator struct {
	language domain.Language
	english  string
	err      error
}

func (f *fakeTranslator) DetectAndTranslate(_ context.Context, text string) (domain.Language, string, error) {
	if f.err != nil {
		return domain.LanguageUnknown, "", f.err
	}
	if f.english == "" {
		return f.language, text, nil
	}
	return f.language, f.english, nil
}

// fakeCrossEncoder scores by substring match against relevant texts.
type fakeCrossEncoder struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeCrossEncoder) Score(_ context.Context, _, chunkText string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	for key, score := range f.scores {
		if strings.Contains(chunkText, key) {
			return score, nil
		}
	}
	return 0, nil
}

type fakeGenerator struct {
	answer string
	err    error
	prompt string
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string, persona domain.Persona) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.answer, nil
}

type fakeInteractionRepo struct {
	appended  []*domain.Interaction
	judgments map[string]*domain.Judgment
	appendErr error
}

func (f *fakeInteractionRepo) Append(_ context.Context, in *domain.Interaction) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, in)
	return nil
}

func (f *fakeInteractionRepo) GetByID(_ context.Context, id string) (*domain.Interaction, error) {
	for _, in := range f.appended {
		if in.ID == id {
			return in, nil
		}
	}
	return nil, domain.WrapError(domain.ErrInteractionNotFound, "get interaction", errors.New(id))
}

func (f *fakeInteractionRepo) AppendJudgment(_ context.Context, j *domain.Judgment) error {
	if f.judgments == nil {
		f.judgments = make(map[string]*domain.Judgment)
	}
	if _, exists := f.judgments[j.InteractionID]; exists {
		return nil
	}
	f.judgments[j.InteractionID] = j
	return nil
}

func (f *fakeInteractionRepo) GetJudgment(_ context.Context, interactionID string) (*domain.Judgment, error) {
	if j, ok := f.judgments[interactionID]; ok {
		return j, nil
	}
	return nil, domain.WrapError(domain.ErrInteractionNotFound, "get judgment", errors.New(interactionID))
}

func (f *fakeInteractionRepo) ListJudged(_ context.Context, _ int) ([]domain.JudgedInteraction, error) {
	var out []domain.JudgedInteraction
	for _, in := range f.appended {
		if j, ok := f.judgments[in.ID]; ok {
			out = append(out, domain.JudgedInteraction{Interaction: *in, Judgment: *j})
		}
	}
	return out, nil
}

type fakeJudgeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeJudgeQueue) PublishJudgeRequest(_ context.Context, interactionID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, interactionID)
	return nil
}

func (f *fakeJudgeQueue) SubscribeJudgeRequests(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeJudge struct {
	score     float64
	rationale string
	err       error
	calls     int
}

func (f *fakeJudge) Judge(_ context.Context, _, _, _ string) (float64, string, error) {
	f.calls++
	if f.err != nil {
		return 0, "", f.err
	}
	return f.score, f.rationale, nil
}

func testPersonas() map[string]domain.Persona {
	return map[string]domain.Persona{
		"street lawyer": {
			Name:             "street lawyer",
			Language:         domain.LanguagePidgin,
			AnswerStarter:    "My guy, dis law talk say",
			NoGroundingReply: "My guy, I no fit find any section for di law wey match your question.",
		},
		"plain english": {
			Name:             "plain english",
			Language:         domain.LanguageEnglish,
			AnswerStarter:    "Basically, the law states that",
			NoGroundingReply: "I could not find any statutory section relevant to this question.",
		},
	}
}

func scoredChunk(id, label, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ChunkID:      id,
			SourceID:     "tenancy-law-2011",
			SectionLabel: label,
			Text:         text,
		},
		Score: score,
	}
}
