package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

// Generator produces the persona-voiced answer. The persona's system
// instruction pins the dialect and register; the fixed answer starter is
// enforced on the output so every persona opens the same way.
type Generator struct {
	client    *Client
	modelName string
}

func NewGenerator(client *Client, modelName string) *Generator {
	return &Generator{client: client, modelName: modelName}
}

func (g *Generator) Complete(ctx context.Context, prompt string, persona domain.Persona) (string, error) {
	model := g.client.genai.GenerativeModel(g.modelName)
	model.SetTemperature(0.4)
	if persona.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(persona.SystemInstruction)},
		}
	}

	text, err := g.client.generate(ctx, "gemini.generate", model, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return ensureStarter(persona, text), nil
}
