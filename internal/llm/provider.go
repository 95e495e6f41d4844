// Package llm holds the chat-completion providers the quiz generator calls.
// Providers take a prompt and return the model's raw text reply; callers own
// prompt construction and response parsing.
package llm

import (
	"context"
	"fmt"
	"os"

	"quizforge/internal/logger"
)

// DefaultTemperature keeps generation focused without making it fully
// deterministic. Quiz questions need consistent structure more than variety.
const DefaultTemperature = 0.3

// Provider is one configured LLM backend.
type Provider interface {
	// Name identifies the backend in logs and activity records.
	Name() string
	// Complete sends a single user prompt and returns the raw reply text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// FromEnv builds the provider selected by the environment: OPENAI_API_KEY
// wins, then GEMINI_API_KEY. Returns an error when neither is set.
func FromEnv(log logger.Logger) (Provider, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAI(OpenAIConfig{
			APIKey:  key,
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
			Logger:  log,
		}), nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return NewGemini(GeminiConfig{
			APIKey: key,
			Model:  os.Getenv("GEMINI_MODEL"),
			Logger: log,
		})
	}
	return nil, fmt.Errorf("no LLM provider configured: set OPENAI_API_KEY or GEMINI_API_KEY")
}
