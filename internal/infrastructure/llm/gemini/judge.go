package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Judge grades a delivered answer against the statute excerpts it was
// generated from. Scores are normalized to [0, 1].
type Judge struct {
	client *Client
	model  *genai.GenerativeModel
}

func NewJudge(client *Client, modelName string) *Judge {
	model := client.genai.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	return &Judge{client: client, model: model}
}

func (j *Judge) Judge(ctx context.Context, queryText, answerText, contextText string) (float64, string, error) {
	raw, err := j.client.generate(ctx, "gemini.judge", j.model, buildJudgePrompt(queryText, contextText, answerText))
	if err != nil {
		return 0, "", fmt.Errorf("judge answer: %w", err)
	}

	payload, ok := extractJSONObject(raw)
	if !ok {
		return 0, "", fmt.Errorf("judge answer: no JSON object in response %q", truncate(raw, 120))
	}

	var parsed struct {
		Score     float64 `json:"score"`
		Rationale string  `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return 0, "", fmt.Errorf("judge answer: decode response: %w", err)
	}

	return normalizeScore(parsed.Score), parsed.Rationale, nil
}

// normalizeScore maps the judge's 0-100 grade into [0, 1], clamping
// out-of-range values instead of failing the judgment.
func normalizeScore(raw float64) float64 {
	score := raw / 100
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
