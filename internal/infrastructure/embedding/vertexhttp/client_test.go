package vertexhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

func TestEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body["text"] != "tenancy notice period" {
			t.Fatalf("unexpected text %q", body["text"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	client := New(server.URL, "n-atlas-mean-v1", nil)
	vector, err := client.EmbedQuery(context.Background(), "tenancy notice period")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vector))
	}
}

func TestEmbedQueryRejectsEmptyText(t *testing.T) {
	client := New("http://localhost:8501", "n-atlas-mean-v1", nil)
	_, err := client.EmbedQuery(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestEmbedCallsSidecarPerText(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1}})
	}))
	defer server.Close()

	client := New(server.URL, "n-atlas-mean-v1", nil)
	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 sidecar calls, got %d", calls.Load())
	}
}

func TestEmbedStopsOnFirstFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			http.Error(w, "model not loaded", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{1}})
	}))
	defer server.Close()

	client := New(server.URL, "n-atlas-mean-v1", nil)
	_, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error from failing sidecar call")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected embedding to stop at failure, got %d calls", calls.Load())
	}
}

func TestClassifyEmbeddingError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"server error", &statusError{code: 503}, true},
		{"rate limited", &statusError{code: 429}, true},
		{"bad request", &statusError{code: 400}, false},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyEmbeddingError(tc.err).Retryable; got != tc.retryable {
				t.Fatalf("classify(%v).Retryable = %v, want %v", tc.err, got, tc.retryable)
			}
		})
	}
}
