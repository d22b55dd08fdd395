package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/civicaccess/streetlaw/internal/infrastructure/resilience"
)

// Client talks to the cross-encoder sidecar. The sidecar scores one
// (query, passage) pair per POST /rerank call and returns {"score"}, a
// relevance value the caller compares against the rerank threshold.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Score(ctx context.Context, queryText, chunkText string) (float64, error) {
	var score float64
	call := func(ctx context.Context) error {
		var err error
		score, err = c.rerank(ctx, queryText, chunkText)
		return err
	}

	if c.executor == nil {
		if err := call(ctx); err != nil {
			return 0, err
		}
		return score, nil
	}
	if err := c.executor.Execute(ctx, "rerank.score", call, classifyRerankError); err != nil {
		return 0, err
	}
	return score, nil
}

func (c *Client) rerank(ctx context.Context, queryText, chunkText string) (float64, error) {
	body, err := json.Marshal(map[string]string{
		"query":   queryText,
		"passage": chunkText,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal rerank body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var rerankResp struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return 0, fmt.Errorf("decode rerank response: %w", err)
	}
	return rerankResp.Score, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("rerank status %d: %s", e.code, e.body)
	}
	return fmt.Sprintf("rerank status %d", e.code)
}

func classifyRerankError(err error) resilience.ErrorClassification {
	var se *statusError
	if errors.As(err, &se) {
		retryable := se.code >= 500 || se.code == http.StatusTooManyRequests
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
