package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/core/ports"
)

// AskParams are the tuning knobs of the ask pipeline.
type AskParams struct {
	RetrievalTopK     int
	RerankTopN        int
	RerankThreshold   float64
	GenerationTimeout time.Duration
}

// AskUseCase runs the full question pipeline: translate, retrieve,
// rerank, generate, record, and hand off to asynchronous judging. The
// answer is produced in the raw query's dialect; only retrieval runs on
// the English normalization.
type AskUseCase struct {
	translator   ports.Translator
	embedder     ports.Embedder
	index        ports.VectorIndex
	crossEncoder ports.CrossEncoder
	generator    ports.AnswerGenerator
	interactions ports.InteractionRepository
	queue        ports.JudgeQueue
	personas     map[string]domain.Persona
	params       AskParams
	logger       *slog.Logger
}

func NewAskUseCase(
	translator ports.Translator,
	embedder ports.Embedder,
	index ports.VectorIndex,
	crossEncoder ports.CrossEncoder,
	generator ports.AnswerGenerator,
	interactions ports.InteractionRepository,
	queue ports.JudgeQueue,
	personas map[string]domain.Persona,
	params AskParams,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if params.RetrievalTopK <= 0 {
		params.RetrievalTopK = 15
	}
	if params.RerankTopN <= 0 {
		params.RerankTopN = 3
	}
	if params.GenerationTimeout <= 0 {
		params.GenerationTimeout = 45 * time.Second
	}
	return &AskUseCase{
		translator:   translator,
		embedder:     embedder,
		index:        index,
		crossEncoder: crossEncoder,
		generator:    generator,
		interactions: interactions,
		queue:        queue,
		personas:     personas,
		params:       params,
		logger:       logger,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, rawText, personaName string) (*domain.Answer, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("query is empty"))
	}
	persona, ok := uc.personas[strings.ToLower(strings.TrimSpace(personaName))]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("unknown persona %q", personaName))
	}

	query := uc.normalizeQuery(ctx, rawText)

	reranked, err := uc.retrieveGrounding(ctx, query.NormalizedText)
	if err != nil && !domain.IsKind(err, domain.ErrNoRelevantLaw) {
		return nil, err
	}

	interactionID := uuid.NewString()

	if domain.IsKind(err, domain.ErrNoRelevantLaw) {
		// A valid outcome, answered with the persona's localized refusal.
		// Nothing was generated, so there is nothing to judge.
		answer := &domain.Answer{
			InteractionID: interactionID,
			Text:          persona.NoGroundingReply,
			CitedSections: []string{},
			Degraded:      query.Degraded,
		}
		if err := uc.recordInteraction(ctx, interactionID, query, persona, nil, answer.Text); err != nil {
			return nil, err
		}
		uc.logger.Info("ask_no_grounding", "interaction_id", interactionID, "persona", persona.Name)
		return answer, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, uc.params.GenerationTimeout)
	defer cancel()

	text, err := uc.generator.Complete(genCtx, buildAnswerPrompt(rawText, reranked), persona)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.ErrTemporary, "generate answer", err)
		}
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if err := uc.recordInteraction(ctx, interactionID, query, persona, reranked, text); err != nil {
		return nil, err
	}

	// Judging is best-effort; a queue outage must not fail the answer.
	if err := uc.queue.PublishJudgeRequest(ctx, interactionID); err != nil {
		uc.logger.Warn("judge_publish_failed", "interaction_id", interactionID, "error", err)
	}

	uc.logger.Info("ask_answered",
		"interaction_id", interactionID,
		"persona", persona.Name,
		"language", query.DetectedLanguage,
		"degraded", query.Degraded,
		"cited_sections", len(reranked),
	)
	return &domain.Answer{
		InteractionID: interactionID,
		Text:          text,
		CitedSections: reranked.SectionLabels(),
		Degraded:      query.Degraded,
	}, nil
}

// retrieveGrounding runs the English side of the pipeline: embed the
// normalized query, dense top-K retrieval, cross-encoder rerank. No
// chunk above the threshold is signaled as ErrNoRelevantLaw, which the
// caller maps to the persona's refusal instead of a failure.
func (uc *AskUseCase) retrieveGrounding(ctx context.Context, normalizedText string) (domain.RerankedResult, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, normalizedText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := uc.index.Query(ctx, vector, uc.params.RetrievalTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	reranked, err := rerankCandidates(ctx, uc.crossEncoder, normalizedText, candidates,
		uc.params.RerankTopN, uc.params.RerankThreshold)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}
	if len(reranked) == 0 {
		return nil, domain.WrapError(domain.ErrNoRelevantLaw, "retrieve grounding",
			errors.New("no chunk scored above the rerank threshold"))
	}
	return reranked, nil
}

// normalizeQuery detects the language and translates to English for
// retrieval. Translation failure degrades to the raw text instead of
// failing the request.
func (uc *AskUseCase) normalizeQuery(ctx context.Context, rawText string) domain.Query {
	language, english, err := uc.translator.DetectAndTranslate(ctx, rawText)
	if err != nil {
		uc.logger.Warn("translation_degraded", "error", err)
		return domain.Query{
			RawText:          rawText,
			DetectedLanguage: domain.LanguageUnknown,
			NormalizedText:   rawText,
			Degraded:         true,
		}
	}
	return domain.Query{
		RawText:          rawText,
		DetectedLanguage: language,
		NormalizedText:   english,
	}
}

func (uc *AskUseCase) recordInteraction(
	ctx context.Context,
	id string,
	query domain.Query,
	persona domain.Persona,
	reranked domain.RerankedResult,
	answer string,
) error {
	interaction := &domain.Interaction{
		ID:            id,
		Query:         query,
		Persona:       persona.Name,
		Context:       reranked,
		Answer:        answer,
		CitedSections: reranked.SectionLabels(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.interactions.Append(ctx, interaction); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// buildAnswerPrompt pairs the user's original wording with the English
// statute excerpts. The persona system instruction, applied by the
// generator, controls the output dialect.
func buildAnswerPrompt(rawText string, reranked domain.RerankedResult) string {
	var sb strings.Builder
	sb.WriteString("[Legal Context]\n")
	for _, sc := range reranked {
		sb.WriteString(sc.Chunk.Text)
		sb.WriteString("\n\n")
	}
	sb.WriteString("[User Question]\n")
	sb.WriteString(rawText)
	sb.WriteString("\n\nAnswer the question using only the legal context above.")
	return sb.String()
}
