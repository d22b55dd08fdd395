package domain

import "time"

// Interaction is the append-only record of one answered request. Created
// once after the answer is produced, never mutated; a later Judgment
// references it by ID.
type Interaction struct {
	ID            string        `json:"id"`
	Query         Query         `json:"query"`
	Persona       string        `json:"persona"`
	Context       []ScoredChunk `json:"context"`
	Answer        string        `json:"answer"`
	CitedSections []string      `json:"cited_sections"`
	CreatedAt     time.Time     `json:"created_at"`
}

type JudgmentStatus string

const (
	JudgmentPending JudgmentStatus = "pending"
	JudgmentScored  JudgmentStatus = "scored"
	JudgmentFailed  JudgmentStatus = "failed"
)

// Judgment is the asynchronous grounding evaluation of one Interaction.
// At most one exists per interaction. Score is in [0, 1].
type Judgment struct {
	InteractionID string         `json:"interaction_id"`
	Score         float64        `json:"score"`
	Rationale     string         `json:"rationale"`
	Status        JudgmentStatus `json:"status"`
	EvaluatedAt   time.Time      `json:"evaluated_at"`
}

// JudgedInteraction joins an interaction with its judgment for reporting.
type JudgedInteraction struct {
	Interaction Interaction `json:"interaction"`
	Judgment    Judgment    `json:"judgment"`
}
