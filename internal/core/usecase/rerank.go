package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/core/ports"
)

// rerankCandidates scores each retrieval candidate against the query with
// the cross encoder, drops everything under the threshold and keeps the
// best topN. Ties keep retrieval order. An empty result is valid and
// means no sufficiently relevant law was found.
func rerankCandidates(
	ctx context.Context,
	encoder ports.CrossEncoder,
	queryText string,
	candidates domain.RetrievalResult,
	topN int,
	threshold float64,
) (domain.RerankedResult, error) {
	if len(candidates) == 0 {
		return domain.RerankedResult{}, nil
	}
	if topN <= 0 {
		topN = len(candidates)
	}

	kept := make(domain.RerankedResult, 0, len(candidates))
	for _, candidate := range candidates {
		score, err := encoder.Score(ctx, queryText, candidate.Chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("score chunk %s: %w", candidate.Chunk.ChunkID, err)
		}
		if score < threshold {
			continue
		}
		kept = append(kept, domain.ScoredChunk{Chunk: candidate.Chunk, Score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if len(kept) > topN {
		kept = kept[:topN]
	}
	return kept, nil
}
