// ABOUTME: Backend interface and provider selection for digest generation
// ABOUTME: Resolves the configured provider once at construction time
package llm

import (
	"context"
	"fmt"

	"github.com/harper/chatdigest/internal/config"
)

// Request is a single generation call. JSONMode asks the provider to
// constrain output to a JSON object where the API supports it.
type Request struct {
	SystemPrompt string
	Prompt       string
	Temperature  float32
	JSONMode     bool
}

// Backend generates text from a prompt. Implementations retry transient
// failures internally and return the final error once retries are exhausted.
type Backend interface {
	// Generate returns the raw model output for the request
	Generate(ctx context.Context, req Request) (string, error)
	// Name identifies the backend for logging
	Name() string
}

// BackendError wraps a provider failure with the backend name attached
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// New constructs the backend named by cfg.AI.Provider. DeepSeek speaks the
// OpenAI chat completions dialect, so both share the OpenAI client with
// different base URLs.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.AI.Provider {
	case "deepseek", "openai":
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", cfg.AI.Provider)
		}
		return NewOpenAIBackend(cfg.AI), nil
	case "gemini":
		if cfg.AI.GeminiKey == "" {
			return nil, fmt.Errorf("provider gemini requires GEMINI_API_KEY")
		}
		return NewGeminiBackend(cfg.AI), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.AI.Provider)
	}
}
