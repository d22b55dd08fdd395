package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	source_id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	full_text TEXT NOT NULL,
	checksum TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.LegalDocument) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (source_id, title, full_text, checksum, created_at)
VALUES ($1,$2,$3,$4,$5)
`,
		doc.SourceID, doc.Title, doc.FullText, doc.Checksum, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, sourceID string) (*domain.LegalDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT source_id, title, full_text, checksum, created_at
FROM documents
WHERE source_id = $1
`, sourceID)
	return scanDocument(row, sourceID)
}

func (r *DocumentRepository) GetByChecksum(ctx context.Context, checksum string) (*domain.LegalDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT source_id, title, full_text, checksum, created_at
FROM documents
WHERE checksum = $1
`, checksum)
	return scanDocument(row, checksum)
}

func scanDocument(row *sql.Row, key string) (*domain.LegalDocument, error) {
	var doc domain.LegalDocument
	err := row.Scan(&doc.SourceID, &doc.Title, &doc.FullText, &doc.Checksum, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("document %s", key))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}
