package ports

import (
	"context"
	"io"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

// DocumentRepository persists ingested statute sources.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.LegalDocument) error
	GetByID(ctx context.Context, sourceID string) (*domain.LegalDocument, error)
	GetByChecksum(ctx context.Context, checksum string) (*domain.LegalDocument, error)
}

// InteractionRepository is the append-only store for interactions and
// their judgments. AppendJudgment must be a no-op when a judgment for the
// interaction already exists.
type InteractionRepository interface {
	Append(ctx context.Context, in *domain.Interaction) error
	GetByID(ctx context.Context, id string) (*domain.Interaction, error)
	AppendJudgment(ctx context.Context, j *domain.Judgment) error
	GetJudgment(ctx context.Context, interactionID string) (*domain.Judgment, error)
	ListJudged(ctx context.Context, limit int) ([]domain.JudgedInteraction, error)
}

// Chunker splits a statute into citation-addressable section chunks.
type Chunker interface {
	Chunk(doc *domain.LegalDocument) []domain.Chunk
}

// TextExtractor turns an uploaded statute file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Translator is the detect-and-translate capability. It may fail
// independently of the rest of the system; callers fall back to the raw
// text and flag the query as degraded.
type Translator interface {
	DetectAndTranslate(ctx context.Context, text string) (domain.Language, string, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex stores embedded chunks and serves dense top-K search.
// Implementations guarantee that readers see either the pre- or
// post-upsert state and that vectors from a stale embedding model are
// never returned. HasSource reports whether the source holds any vector
// under the current embedding model; ingestion uses it to decide when a
// known document must be re-embedded.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error
	Query(ctx context.Context, vector []float32, k int) (domain.RetrievalResult, error)
	Invalidate(ctx context.Context, sourceID string) error
	HasSource(ctx context.Context, sourceID string) (bool, error)
	Mode() string
}

// CrossEncoder scores one (query, chunk) pair for the rerank stage.
type CrossEncoder interface {
	Score(ctx context.Context, queryText, chunkText string) (float64, error)
}

// AnswerGenerator produces the persona-voiced answer text.
type AnswerGenerator interface {
	Complete(ctx context.Context, prompt string, persona domain.Persona) (string, error)
}

// AnswerJudge grades a delivered answer against its retrieved context.
type AnswerJudge interface {
	Judge(ctx context.Context, queryText, answerText, contextText string) (float64, string, error)
}

// JudgeQueue decouples judging from the request critical path.
type JudgeQueue interface {
	PublishJudgeRequest(ctx context.Context, interactionID string) error
	SubscribeJudgeRequests(ctx context.Context, handler func(context.Context, string) error) error
}
