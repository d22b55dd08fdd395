package vertexhttp

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

	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/infrastructure/resilience"
)

// Client talks to the embedding sidecar serving the sentence encoder. The
// sidecar exposes a single POST /predict endpoint taking {"text"} and
// returning {"embedding"}; one call embeds one text.
type Client struct {
	baseURL    string
	modelID    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, vectorModelID string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelID:    vectorModelID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

// ModelID identifies the embedding model the sidecar serves. Vectors are
// tagged with it so the index can reject stale-model points.
func (c *Client) ModelID() string { return c.modelID }

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed query", errors.New("empty text"))
	}

	var vector []float32
	call := func(ctx context.Context) error {
		var err error
		vector, err = c.predict(ctx, text)
		return err
	}

	if c.executor == nil {
		if err := call(ctx); err != nil {
			return nil, err
		}
		return vector, nil
	}
	if err := c.executor.Execute(ctx, "embedding.predict", call, classifyEmbeddingError); err != nil {
		return nil, err
	}
	return vector, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vector, err := c.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (c *Client) predict(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal predict body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var predictResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&predictResp); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if len(predictResp.Embedding) == 0 {
		return nil, errors.New("embedding predict: empty embedding in response")
	}
	return predictResp.Embedding, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("embedding predict status %d: %s", e.code, e.body)
	}
	return fmt.Sprintf("embedding predict status %d", e.code)
}

func classifyEmbeddingError(err error) resilience.ErrorClassification {
	var se *statusError
	if errors.As(err, &se) {
		// 5xx and overload responses are transient; client errors are not.
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
