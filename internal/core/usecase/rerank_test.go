package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

func TestRerankFiltersAndReorders(t *testing.T) {
	candidates := domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nShort title.", 0.9),
		scoredChunk("c2", "Section 13", "Tenancy Law, Section 13.\nNotice periods.", 0.8),
		scoredChunk("c3", "Section 2", "Tenancy Law, Section 2.\nDefinitions.", 0.7),
	}
	encoder := &fakeCrossEncoder{scores: map[string]float64{
		"Section 1.": 0.3,
		"Section 13": 0.9,
		"Section 2.": 0.1,
	}}

	reranked, err := rerankCandidates(context.Background(), encoder, "notice before eviction", candidates, 3, 0.25)
	if err != nil {
		t.Fatalf("rerankCandidates() error = %v", err)
	}

	if len(reranked) != 2 {
		t.Fatalf("expected 2 surviving chunks, got %d", len(reranked))
	}
	if reranked[0].Chunk.SectionLabel != "Section 13" {
		t.Fatalf("expected rerank to reorder, got %s first", reranked[0].Chunk.SectionLabel)
	}
	if reranked[1].Chunk.SectionLabel != "Section 1" {
		t.Fatalf("unexpected second chunk %s", reranked[1].Chunk.SectionLabel)
	}
	if encoder.calls != 3 {
		t.Fatalf("expected every candidate scored, got %d calls", encoder.calls)
	}
}

func TestRerankCapsAtTopN(t *testing.T) {
	candidates := domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nA.", 0.9),
		scoredChunk("c2", "Section 2", "Tenancy Law, Section 2.\nB.", 0.8),
		scoredChunk("c3", "Section 3", "Tenancy Law, Section 3.\nC.", 0.7),
		scoredChunk("c4", "Section 4", "Tenancy Law, Section 4.\nD.", 0.6),
	}
	encoder := &fakeCrossEncoder{scores: map[string]float64{
		"Section 1": 0.9, "Section 2": 0.8, "Section 3": 0.7, "Section 4": 0.6,
	}}

	reranked, err := rerankCandidates(context.Background(), encoder, "q", candidates, 3, 0.25)
	if err != nil {
		t.Fatalf("rerankCandidates() error = %v", err)
	}
	if len(reranked) != 3 {
		t.Fatalf("expected top-3 cap, got %d", len(reranked))
	}
}

func TestRerankTiesKeepRetrievalOrder(t *testing.T) {
	candidates := domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nA.", 0.9),
		scoredChunk("c2", "Section 2", "Tenancy Law, Section 2.\nB.", 0.8),
	}
	encoder := &fakeCrossEncoder{scores: map[string]float64{
		"Section 1": 0.5, "Section 2": 0.5,
	}}

	reranked, err := rerankCandidates(context.Background(), encoder, "q", candidates, 2, 0.25)
	if err != nil {
		t.Fatalf("rerankCandidates() error = %v", err)
	}
	if reranked[0].Chunk.SectionLabel != "Section 1" {
		t.Fatalf("tie must keep retrieval order, got %s first", reranked[0].Chunk.SectionLabel)
	}
}

func TestRerankAllBelowThresholdIsEmptyNotError(t *testing.T) {
	candidates := domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nA.", 0.9),
	}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"Section 1": 0.1}}

	reranked, err := rerankCandidates(context.Background(), encoder, "q", candidates, 3, 0.25)
	if err != nil {
		t.Fatalf("rerankCandidates() error = %v", err)
	}
	if len(reranked) != 0 {
		t.Fatalf("expected empty result, got %d", len(reranked))
	}
}

func TestRerankPropagatesEncoderFailure(t *testing.T) {
	candidates := domain.RetrievalResult{
		scoredChunk("c1", "Section 1", "Tenancy Law, Section 1.\nA.", 0.9),
	}
	encoder := &fakeCrossEncoder{err: errors.New("encoder down")}

	if _, err := rerankCandidates(context.Background(), encoder, "q", candidates, 3, 0.25); err == nil {
		t.Fatal("expected error from failing encoder")
	}
}
