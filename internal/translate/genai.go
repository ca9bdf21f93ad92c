package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGenAIModel = "gemini-2.0-flash-lite"

// GenAI translates through the Gemini API.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a Gemini-backed capability.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}
	if model == "" {
		model = defaultGenAIModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

func (g *GenAI) Translate(ctx context.Context, text, targetCode string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text into the language with ISO 639-1 code %q. "+
			"Reply with the translation only, no quotes or commentary.\n\n%s", targetCode, text)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate translation: %w", err)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", errors.New("empty translation")
	}
	return out, nil
}
