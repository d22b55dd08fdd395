package ports

import (
	"context"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

// DocumentIngestor is the inbound contract for statute ingestion.
type DocumentIngestor interface {
	Ingest(ctx context.Context, sourceID, title, fullText string) (*domain.IngestResult, error)
}

// LegalQueryService is the inbound contract for the ask critical path.
type LegalQueryService interface {
	Ask(ctx context.Context, rawText, persona string) (*domain.Answer, error)
}

// InteractionReader is the inbound read model for interaction records.
type InteractionReader interface {
	GetByID(ctx context.Context, id string) (*domain.Interaction, error)
	GetJudgment(ctx context.Context, interactionID string) (*domain.Judgment, error)
}

// JudgeProcessor is the inbound contract for asynchronous judging.
type JudgeProcessor interface {
	JudgeByID(ctx context.Context, interactionID string) error
}
