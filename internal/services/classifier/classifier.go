package classifier

import (
	"context"
	"errors"
	"fmt"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/services/vision"
)

// Prompt is the instruction sent with every escalated frame.
const Prompt = "We are monitoring an environment where real fires are rare. " +
	"Respond ONLY with 'Yes' if you see actual flames or smoke in " +
	"this image, otherwise respond with 'No'."

// ErrEmptyResponse is returned when the model answers with no choices or parts.
var ErrEmptyResponse = errors.New("classifier returned an empty response")

// Classifier asks a vision model whether an image shows fire and returns
// its free-text answer.
type Classifier interface {
	Classify(ctx context.Context, img vision.EncodedImage) (string, error)
}

// New builds the classifier selected by cfg.Classifier.Backend.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (Classifier, error) {
	switch cfg.Classifier.Backend {
	case "openai":
		return NewOpenAIClassifier(cfg.Classifier, logger), nil
	case "gemini":
		return NewGeminiClassifier(ctx, cfg.Classifier, logger)
	default:
		return nil, fmt.Errorf("unsupported classifier backend: %s", cfg.Classifier.Backend)
	}
}
