package classifier

import (
	"context"
	"fmt"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/services/vision"

	"google.golang.org/genai"
)

// GeminiClassifier asks a Gemini model through the Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
	logger *logger.Logger
}

// NewGeminiClassifier creates a Gemini API client.
func NewGeminiClassifier(ctx context.Context, cfg config.ClassifierConfig, logger *logger.Logger) (*GeminiClassifier, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Classify sends the prompt and the inline JPEG as one user turn.
func (c *GeminiClassifier) Classify(ctx context.Context, img vision.EncodedImage) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(Prompt),
		genai.NewPartFromBytes(img.JPEG, "image/jpeg"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	c.logger.Debug("invoke Gemini: model=%s image_bytes=%d", c.model, len(img.JPEG))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Text(), nil
}
