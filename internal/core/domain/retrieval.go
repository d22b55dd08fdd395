package domain

// ScoredChunk pairs a chunk with a relevance score. The score semantics
// depend on the stage: cosine similarity after retrieval, cross-encoder
// score after reranking.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is the dense top-K stage output: descending by score,
// ties broken by ingest order, length <= K.
type RetrievalResult []ScoredChunk

// RerankedResult is the cross-encoder stage output: a subset of the
// retrieval candidates, descending by rerank score, length <= N. Empty is
// a valid outcome meaning no sufficiently relevant law was found.
type RerankedResult []ScoredChunk

func (r RerankedResult) SectionLabels() []string {
	labels := make([]string, 0, len(r))
	for _, sc := range r {
		labels = append(labels, sc.Chunk.SectionLabel)
	}
	return labels
}

// Answer is the user-facing result of one ask request.
type Answer struct {
	InteractionID string   `json:"interaction_id"`
	Text          string   `json:"generated_answer"`
	CitedSections []string `json:"cited_sections"`
	Degraded      bool     `json:"degraded"`
}
