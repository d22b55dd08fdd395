package memindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	ord    int
}

// Index is the ephemeral in-memory fallback used when the durable vector
// store is unreachable at startup. Writes are serialized by the mutex;
// reads run concurrently and observe either the pre- or post-upsert state.
// Contents do not survive a restart.
type Index struct {
	modelID string

	mu      sync.RWMutex
	entries []entry
	nextOrd int
}

func New(vectorModelID string) *Index {
	return &Index{modelID: vectorModelID}
}

func (i *Index) Mode() string { return "ephemeral" }

// Upsert replaces every stored vector of the chunks' source documents,
// so stale-model vectors never coexist with re-embedded ones. Chunks
// carrying a different vector_model_id than the index are skipped.
func (i *Index) Upsert(_ context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	sources := make(map[string]struct{})
	fresh := make([]entry, 0, len(chunks))
	for _, c := range chunks {
		if c.VectorModelID != i.modelID || len(c.Vector) == 0 {
			continue
		}
		sources[c.SourceID] = struct{}{}
		fresh = append(fresh, entry{
			chunk:  c.Chunk,
			vector: normalize(c.Vector),
		})
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	kept := i.entries[:0]
	for _, e := range i.entries {
		if _, replaced := sources[e.chunk.SourceID]; !replaced {
			kept = append(kept, e)
		}
	}
	i.entries = kept
	for _, e := range fresh {
		e.ord = i.nextOrd
		i.nextOrd++
		i.entries = append(i.entries, e)
	}
	return nil
}

// HasSource reports whether any vector of the source survives. Stored
// entries already carry the index's own model id, so presence means the
// source is queryable under the current model.
func (i *Index) HasSource(_ context.Context, sourceID string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	for _, e := range i.entries {
		if e.chunk.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

func (i *Index) Invalidate(_ context.Context, sourceID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	kept := i.entries[:0]
	for _, e := range i.entries {
		if e.chunk.SourceID != sourceID {
			kept = append(kept, e)
		}
	}
	i.entries = kept
	return nil
}

// Query returns the k nearest chunks by cosine similarity, descending,
// ties broken by ingest order.
func (i *Index) Query(_ context.Context, vector []float32, k int) (domain.RetrievalResult, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}
	query := normalize(vector)

	i.mu.RLock()
	scored := make([]struct {
		sc  domain.ScoredChunk
		ord int
	}, 0, len(i.entries))
	for _, e := range i.entries {
		scored = append(scored, struct {
			sc  domain.ScoredChunk
			ord int
		}{
			sc:  domain.ScoredChunk{Chunk: e.chunk, Score: dot(query, e.vector)},
			ord: e.ord,
		})
	}
	i.mu.RUnlock()

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].sc.Score != scored[b].sc.Score {
			return scored[a].sc.Score > scored[b].sc.Score
		}
		return scored[a].ord < scored[b].ord
	})

	if k > len(scored) {
		k = len(scored)
	}
	out := make(domain.RetrievalResult, 0, k)
	for _, s := range scored[:k] {
		out = append(out, s.sc)
	}
	return out, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for idx, x := range v {
		out[idx] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for idx := 0; idx < n; idx++ {
		sum += float64(a[idx]) * float64(b[idx])
	}
	return sum
}
