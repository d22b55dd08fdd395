package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

type InteractionRepository struct {
	db *sql.DB
}

func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082302)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	raw_query TEXT NOT NULL,
	detected_language TEXT NOT NULL,
	normalized_query TEXT NOT NULL,
	degraded BOOLEAN NOT NULL DEFAULT FALSE,
	persona TEXT NOT NULL,
	context JSONB NOT NULL DEFAULT '[]'::jsonb,
	answer TEXT NOT NULL,
	cited_sections JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_created_at ON interactions(created_at DESC);

CREATE TABLE IF NOT EXISTS judgments (
	interaction_id TEXT PRIMARY KEY REFERENCES interactions(id),
	score DOUBLE PRECISION NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	evaluated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *InteractionRepository) Append(ctx context.Context, in *domain.Interaction) error {
	contextJSON, err := json.Marshal(in.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	citedJSON, err := json.Marshal(in.CitedSections)
	if err != nil {
		return fmt.Errorf("marshal cited sections: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO interactions (
	id, raw_query, detected_language, normalized_query, degraded, persona, context, answer, cited_sections, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		in.ID, in.Query.RawText, string(in.Query.DetectedLanguage), in.Query.NormalizedText, in.Query.Degraded,
		in.Persona, contextJSON, in.Answer, citedJSON, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (r *InteractionRepository) GetByID(ctx context.Context, id string) (*domain.Interaction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, raw_query, detected_language, normalized_query, degraded, persona, context, answer, cited_sections, created_at
FROM interactions
WHERE id = $1
`, id)

	in, err := scanInteraction(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInteractionNotFound, "get interaction", fmt.Errorf("interaction %s", id))
		}
		return nil, err
	}
	return in, nil
}

// AppendJudgment records the judgment at most once. A second judgment of
// the same interaction is silently dropped, which makes redelivered
// queue messages idempotent.
func (r *InteractionRepository) AppendJudgment(ctx context.Context, j *domain.Judgment) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO judgments (interaction_id, score, rationale, status, evaluated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (interaction_id) DO NOTHING
`,
		j.InteractionID, j.Score, j.Rationale, string(j.Status), j.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert judgment: %w", err)
	}
	return nil
}

func (r *InteractionRepository) GetJudgment(ctx context.Context, interactionID string) (*domain.Judgment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT interaction_id, score, rationale, status, evaluated_at
FROM judgments
WHERE interaction_id = $1
`, interactionID)

	var j domain.Judgment
	var status string
	err := row.Scan(&j.InteractionID, &j.Score, &j.Rationale, &status, &j.EvaluatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInteractionNotFound, "get judgment", fmt.Errorf("judgment for %s", interactionID))
		}
		return nil, fmt.Errorf("scan judgment: %w", err)
	}
	j.Status = domain.JudgmentStatus(status)
	return &j, nil
}

func (r *InteractionRepository) ListJudged(ctx context.Context, limit int) ([]domain.JudgedInteraction, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT i.id, i.raw_query, i.detected_language, i.normalized_query, i.degraded, i.persona, i.context, i.answer, i.cited_sections, i.created_at,
       j.interaction_id, j.score, j.rationale, j.status, j.evaluated_at
FROM interactions i
JOIN judgments j ON j.interaction_id = i.id
ORDER BY j.evaluated_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query judged interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.JudgedInteraction
	for rows.Next() {
		var (
			in         domain.Interaction
			j          domain.Judgment
			language   string
			status     string
			contextRaw []byte
			citedRaw   []byte
		)
		err := rows.Scan(
			&in.ID, &in.Query.RawText, &language, &in.Query.NormalizedText, &in.Query.Degraded, &in.Persona,
			&contextRaw, &in.Answer, &citedRaw, &in.CreatedAt,
			&j.InteractionID, &j.Score, &j.Rationale, &status, &j.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan judged interaction: %w", err)
		}
		if err := json.Unmarshal(contextRaw, &in.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
		if err := json.Unmarshal(citedRaw, &in.CitedSections); err != nil {
			return nil, fmt.Errorf("unmarshal cited sections: %w", err)
		}
		in.Query.DetectedLanguage = domain.Language(language)
		j.Status = domain.JudgmentStatus(status)
		out = append(out, domain.JudgedInteraction{Interaction: in, Judgment: j})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate judged interactions: %w", err)
	}
	return out, nil
}

func scanInteraction(scan func(dest ...any) error) (*domain.Interaction, error) {
	var (
		in         domain.Interaction
		language   string
		contextRaw []byte
		citedRaw   []byte
	)
	err := scan(
		&in.ID, &in.Query.RawText, &language, &in.Query.NormalizedText, &in.Query.Degraded, &in.Persona,
		&contextRaw, &in.Answer, &citedRaw, &in.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan interaction: %w", err)
	}
	if err := json.Unmarshal(contextRaw, &in.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if err := json.Unmarshal(citedRaw, &in.CitedSections); err != nil {
		return nil, fmt.Errorf("unmarshal cited sections: %w", err)
	}
	in.Query.DetectedLanguage = domain.Language(language)
	return &in, nil
}
