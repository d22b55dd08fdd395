package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/core/ports"
)

// IngestUseCase stores a statute and indexes its section chunks.
// Re-ingesting identical content is a checksum-keyed no-op while the
// document's vectors exist under the current embedding model; once they
// are gone the same call re-embeds the stored text instead.
type IngestUseCase struct {
	repo          ports.DocumentRepository
	chunker       ports.Chunker
	embedder      ports.Embedder
	index         ports.VectorIndex
	vectorModelID string
	logger        *slog.Logger
}

func NewIngestUseCase(
	repo ports.DocumentRepository,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	vectorModelID string,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		repo:          repo,
		chunker:       chunker,
		embedder:      embedder,
		index:         index,
		vectorModelID: vectorModelID,
		logger:        logger,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, sourceID, title, fullText string) (*domain.IngestResult, error) {
	sourceID = strings.TrimSpace(sourceID)
	title = strings.TrimSpace(title)
	if sourceID == "" || title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("source_id and title are required"))
	}
	if strings.TrimSpace(fullText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("full_text is empty"))
	}

	sum := sha256.Sum256([]byte(fullText))
	checksum := hex.EncodeToString(sum[:])

	if existing, err := uc.repo.GetByChecksum(ctx, checksum); err == nil {
		return uc.ingestKnown(ctx, existing, checksum)
	} else if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	doc := &domain.LegalDocument{
		SourceID:  sourceID,
		Title:     title,
		FullText:  fullText,
		Checksum:  checksum,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	count, err := uc.indexDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("ingest_complete", "source_id", sourceID, "chunks", count, "index_mode", uc.index.Mode())
	return &domain.IngestResult{Document: doc, Chunks: count}, nil
}

// ingestKnown handles re-ingestion of content already on file. The
// stored document stays untouched, but the index may have lost its
// vectors (restart on the ephemeral index, or an embedding model
// change), so presence under the current model decides between a plain
// no-op and a re-embed.
func (uc *IngestUseCase) ingestKnown(ctx context.Context, existing *domain.LegalDocument, checksum string) (*domain.IngestResult, error) {
	indexed, err := uc.index.HasSource(ctx, existing.SourceID)
	if err != nil {
		return nil, fmt.Errorf("check indexed vectors: %w", err)
	}
	if indexed {
		uc.logger.Info("ingest_duplicate", "source_id", existing.SourceID, "checksum", checksum)
		return &domain.IngestResult{Document: existing, Duplicate: true}, nil
	}

	count, err := uc.indexDocument(ctx, existing)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("ingest_reembedded", "source_id", existing.SourceID, "chunks", count, "index_mode", uc.index.Mode())
	return &domain.IngestResult{Document: existing, Duplicate: true, Chunks: count}, nil
}

func (uc *IngestUseCase) indexDocument(ctx context.Context, doc *domain.LegalDocument) (int, error) {
	chunks := uc.chunker.Chunk(doc)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	embedded := make([]domain.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		embedded[i] = domain.EmbeddedChunk{
			Chunk:         chunk,
			Vector:        vectors[i],
			VectorModelID: uc.vectorModelID,
		}
	}

	// Drop any previously indexed sections of this source before writing
	// the new set, so removed or relabeled sections cannot linger.
	if err := uc.index.Invalidate(ctx, doc.SourceID); err != nil {
		return 0, fmt.Errorf("invalidate stale vectors: %w", err)
	}
	if err := uc.index.Upsert(ctx, embedded); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return len(chunks), nil
}
