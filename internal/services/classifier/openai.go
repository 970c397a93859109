package classifier

import (
	"context"
	"fmt"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/services/vision"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClassifier talks to any OpenAI-compatible chat completion endpoint
// (Groq by default).
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

// NewOpenAIClassifier creates a classifier for the configured endpoint and model.
func NewOpenAIClassifier(cfg config.ClassifierConfig, logger *logger.Logger) *OpenAIClassifier {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger,
	}
}

// Classify sends the prompt and the image as a single user message.
func (c *OpenAIClassifier) Classify(ctx context.Context, img vision.EncodedImage) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: img.DataURI(),
						},
					},
				},
			},
		},
	}

	c.logger.Debug("invoke vision API: model=%s image_bytes=%d", c.model, len(img.JPEG))

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return response.Choices[0].Message.Content, nil
}
