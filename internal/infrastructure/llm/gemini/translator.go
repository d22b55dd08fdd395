package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

// Translator detects the query language and translates it to English for
// retrieval. Callers treat any error as a degradation signal, not a
// request failure.
type Translator struct {
	client *Client
	model  *genai.GenerativeModel
}

func NewTranslator(client *Client, modelName string) *Translator {
	model := client.genai.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	return &Translator{client: client, model: model}
}

func (t *Translator) DetectAndTranslate(ctx context.Context, text string) (domain.Language, string, error) {
	if strings.TrimSpace(text) == "" {
		return domain.LanguageUnknown, "", domain.WrapError(domain.ErrInvalidInput, "translate", errors.New("empty text"))
	}

	raw, err := t.client.generate(ctx, "gemini.translate", t.model, buildTranslatePrompt(text))
	if err != nil {
		return domain.LanguageUnknown, "", fmt.Errorf("translate query: %w", err)
	}

	payload, ok := extractJSONObject(raw)
	if !ok {
		return domain.LanguageUnknown, "", fmt.Errorf("translate query: no JSON object in response %q", truncate(raw, 120))
	}

	var parsed struct {
		Language string `json:"language"`
		English  string `json:"english"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return domain.LanguageUnknown, "", fmt.Errorf("translate query: decode response: %w", err)
	}

	english := strings.TrimSpace(parsed.English)
	if english == "" {
		return domain.LanguageUnknown, "", errors.New("translate query: empty translation in response")
	}
	return parseLanguage(parsed.Language), english, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
