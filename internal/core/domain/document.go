package domain

import "time"

// LegalDocument is an ingested statute source. Immutable once stored;
// re-ingestion with identical content is a no-op keyed by Checksum.
type LegalDocument struct {
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	FullText  string    `json:"full_text"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// Span is a half-open [Start, End) byte range into the source FullText.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is one citation-addressable statutory section. Text carries the
// synthesized citation header followed by the trimmed section body; Span
// covers the section's whole segment of FullText including its marker
// line, so spans concatenated in ingest order reproduce FullText.
type Chunk struct {
	ChunkID      string `json:"chunk_id"`
	SourceID     string `json:"source_id"`
	SectionLabel string `json:"section_label"`
	Text         string `json:"text"`
	Span         Span   `json:"span"`
}

type EmbeddedChunk struct {
	Chunk
	Vector        []float32 `json:"vector"`
	VectorModelID string    `json:"vector_model_id"`
}

type IngestResult struct {
	Document  *LegalDocument `json:"document"`
	Duplicate bool           `json:"duplicate"`
	Chunks    int            `json:"chunks"`
}
