package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/core/ports"
)

// JudgeUseCase evaluates a recorded interaction off the request path.
// The judgment store enforces at-most-once, so redelivered queue
// messages are safe to process again.
type JudgeUseCase struct {
	interactions ports.InteractionRepository
	judge        ports.AnswerJudge
	timeout      time.Duration
	logger       *slog.Logger
}

func NewJudgeUseCase(
	interactions ports.InteractionRepository,
	judge ports.AnswerJudge,
	timeout time.Duration,
	logger *slog.Logger,
) *JudgeUseCase {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JudgeUseCase{
		interactions: interactions,
		judge:        judge,
		timeout:      timeout,
		logger:       logger,
	}
}

func (uc *JudgeUseCase) JudgeByID(ctx context.Context, interactionID string) error {
	interactionID = strings.TrimSpace(interactionID)
	if interactionID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "judge", fmt.Errorf("empty interaction id"))
	}

	if _, err := uc.interactions.GetJudgment(ctx, interactionID); err == nil {
		uc.logger.Info("judge_skip_existing", "interaction_id", interactionID)
		return nil
	} else if !domain.IsKind(err, domain.ErrInteractionNotFound) {
		return fmt.Errorf("check existing judgment: %w", err)
	}

	interaction, err := uc.interactions.GetByID(ctx, interactionID)
	if err != nil {
		return fmt.Errorf("load interaction: %w", err)
	}

	judgeCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	score, rationale, err := uc.judge.Judge(judgeCtx,
		interaction.Query.NormalizedText,
		interaction.Answer,
		contextText(interaction.Context),
	)

	judgment := &domain.Judgment{
		InteractionID: interactionID,
		EvaluatedAt:   time.Now().UTC(),
	}
	if err != nil {
		judgment.Status = domain.JudgmentFailed
		judgment.Rationale = err.Error()
		uc.logger.Error("judge_failed", "interaction_id", interactionID, "error", err)
	} else {
		judgment.Status = domain.JudgmentScored
		judgment.Score = score
		judgment.Rationale = rationale
	}

	if appendErr := uc.interactions.AppendJudgment(ctx, judgment); appendErr != nil {
		return fmt.Errorf("record judgment: %w", appendErr)
	}

	if err == nil {
		uc.logger.Info("judge_scored", "interaction_id", interactionID, "score", score)
	}
	return err
}

func contextText(context []domain.ScoredChunk) string {
	parts := make([]string, 0, len(context))
	for _, sc := range context {
		parts = append(parts, sc.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}
