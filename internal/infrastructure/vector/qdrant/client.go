package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

// Client is the persistent vector index backed by the qdrant HTTP API.
// Only vectors tagged with the configured vector_model_id are returned by
// Query, so stale-model points left over from a previous embedding model
// are invisible until their documents are re-embedded.
type Client struct {
	baseURL    string
	collection string
	modelID    string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection, vectorModelID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		modelID:    vectorModelID,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Mode() string { return "persistent" }

// Probe checks that the backing store is reachable before the index mode
// is committed at startup.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant probe status: %s", resp.Status)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		if chunk.VectorModelID != c.modelID || len(chunk.Vector) == 0 {
			continue
		}
		points = append(points, point{
			ID:     chunk.ChunkID,
			Vector: chunk.Vector,
			Payload: map[string]any{
				"chunk_id":        chunk.ChunkID,
				"source_id":       chunk.SourceID,
				"section_label":   chunk.SectionLabel,
				"text":            chunk.Text,
				"span_start":      chunk.Span.Start,
				"span_end":        chunk.Span.End,
				"chunk_index":     i,
				"vector_model_id": chunk.VectorModelID,
			},
		})
	}
	if len(points) == 0 {
		return nil
	}

	if err := c.ensureCollection(ctx, len(points[0].Vector)); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPut, url, body, nil, "upsert")
}

// Invalidate removes every point of a source document, used before
// re-embedding under a new model id.
func (c *Client) Invalidate(ctx context.Context, sourceID string) error {
	body, err := json.Marshal(map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "source_id",
					"match": map[string]any{"value": sourceID},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	return c.do(ctx, http.MethodPost, url, body, nil, "delete points")
}

// HasSource reports whether the source still has points under the
// current vector_model_id. A source indexed under a previous model
// counts as absent, which is what triggers re-embedding on ingest.
func (c *Client) HasSource(ctx context.Context, sourceID string) (bool, error) {
	body, err := json.Marshal(map[string]any{
		"exact": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "source_id",
					"match": map[string]any{"value": sourceID},
				},
				{
					"key":   "vector_model_id",
					"match": map[string]any{"value": c.modelID},
				},
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("marshal count body: %w", err)
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, body, &countResp, "count points"); err != nil {
		// A missing collection means nothing has been indexed yet.
		var se *requestStatusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return countResp.Result.Count > 0, nil
}

func (c *Client) Query(ctx context.Context, vector []float32, k int) (domain.RetrievalResult, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "vector_model_id",
					"match": map[string]any{"value": c.modelID},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPost, url, body, &searchResp, "search"); err != nil {
		return nil, err
	}

	type scoredWithOrd struct {
		sc  domain.ScoredChunk
		ord int
	}
	scored := make([]scoredWithOrd, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		scored = append(scored, scoredWithOrd{
			sc: domain.ScoredChunk{
				Chunk: domain.Chunk{
					ChunkID:      getString(r.Payload, "chunk_id"),
					SourceID:     getString(r.Payload, "source_id"),
					SectionLabel: getString(r.Payload, "section_label"),
					Text:         getString(r.Payload, "text"),
					Span: domain.Span{
						Start: getInt(r.Payload, "span_start"),
						End:   getInt(r.Payload, "span_end"),
					},
				},
				Score: r.Score,
			},
			ord: getInt(r.Payload, "chunk_index"),
		})
	}

	// qdrant orders ties arbitrarily; pin them to ingest order.
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].sc.Score != scored[b].sc.Score {
			return scored[a].sc.Score > scored[b].sc.Score
		}
		return scored[a].ord < scored[b].ord
	})

	out := make(domain.RetrievalResult, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.sc)
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 when the collection already exists.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return statusError("ensure collection", resp)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

type requestStatusError struct {
	operation string
	code      int
	status    string
	message   string
}

func (e *requestStatusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, e.message)
	}
	return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &requestStatusError{
		operation: operation,
		code:      resp.StatusCode,
		status:    resp.Status,
		message:   strings.TrimSpace(string(body)),
	}
}

func getString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getInt(payload map[string]any, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
