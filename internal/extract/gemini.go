package extract

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the recognition model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiRecognizer implements service.Recognizer on the Gemini API.
type GeminiRecognizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiRecognizer creates a recognizer. Credentials come from the
// environment, as the genai SDK expects.
func NewGeminiRecognizer(ctx context.Context, model string, timeout time.Duration) (*GeminiRecognizer, error) {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiRecognizer{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Recognize sends the prompt, with the image inlined when present, and
// returns the raw model text. Every call carries the configured timeout.
func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []*genai.Part{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     image,
			},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
