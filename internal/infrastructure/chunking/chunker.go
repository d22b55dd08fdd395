package chunking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

const (
	labelPreamble = "Preamble"
	labelFullText = "Full text"
)

// SectionChunker splits statutes on legal-section boundaries. Every chunk
// maps to exactly one section; the chunk text is prefixed with a citation
// header (title plus section label) so every embedding carries provenance.
type SectionChunker struct{}

func NewSectionChunker() *SectionChunker {
	return &SectionChunker{}
}

// Chunk never fails: text before the first marker becomes a preamble
// chunk, and a document without any recognizable marker degrades to a
// single whole-document chunk.
func (c *SectionChunker) Chunk(doc *domain.LegalDocument) []domain.Chunk {
	segs := parseSections(doc.FullText)
	if len(segs) == 0 {
		return []domain.Chunk{buildChunk(doc, labelFullText, 0, len(doc.FullText))}
	}

	// A label repeated within one source (amended text pasted after the
	// original) gets an ordinal suffix to keep (source_id, section_label)
	// unique.
	seen := make(map[string]int, len(segs))
	chunks := make([]domain.Chunk, 0, len(segs))
	for _, seg := range segs {
		label := seg.label
		if seg.kind == segmentPreamble {
			label = labelPreamble
		}
		seen[label]++
		if n := seen[label]; n > 1 {
			label = fmt.Sprintf("%s #%d", label, n)
		}
		chunks = append(chunks, buildChunk(doc, label, seg.start, seg.end))
	}
	return chunks
}

func buildChunk(doc *domain.LegalDocument, label string, start, end int) domain.Chunk {
	body := strings.TrimSpace(doc.FullText[start:end])
	return domain.Chunk{
		ChunkID:      chunkID(doc.SourceID, label),
		SourceID:     doc.SourceID,
		SectionLabel: label,
		Text:         fmt.Sprintf("%s, %s.\n%s", doc.Title, label, body),
		Span:         domain.Span{Start: start, End: end},
	}
}

// chunkID is deterministic so that re-ingesting the same section under a
// new embedding model overwrites the stale point instead of duplicating it.
func chunkID(sourceID, label string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sourceID+"/"+label)).String()
}
