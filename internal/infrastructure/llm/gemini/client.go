package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/civicaccess/streetlaw/internal/infrastructure/resilience"
)

// Client wraps the Gemini SDK connection shared by the translator, the
// generator and the judge. Each capability configures its own model on
// top of this client.
type Client struct {
	genai    *genai.Client
	executor *resilience.Executor
}

func NewClient(ctx context.Context, apiKey string, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{genai: client, executor: executor}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}

// generate runs one prompt against a configured model under the shared
// resilience policy and returns the concatenated text parts.
func (c *Client) generate(ctx context.Context, operation string, model *genai.GenerativeModel, prompt string) (string, error) {
	var text string
	call := func(ctx context.Context) error {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		text, err = responseText(resp)
		return err
	}

	if c.executor == nil {
		if err := call(ctx); err != nil {
			return "", err
		}
		return text, nil
	}
	if err := c.executor.Execute(ctx, operation, call, classifyGeminiError); err != nil {
		return "", err
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: response has no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("gemini: candidate has no content, finish reason %v", candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("gemini: candidate contained no text parts")
	}
	return out, nil
}
