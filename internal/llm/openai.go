// ABOUTME: OpenAI-dialect backend used for both DeepSeek and OpenAI
// ABOUTME: Wraps the chat completions API with retry and backoff
package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/util"
)

// OpenAIBackend calls any chat-completions-compatible endpoint. The base URL
// selects between DeepSeek and OpenAI proper.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIBackend creates a backend against ai.BaseURL
func NewOpenAIBackend(ai config.AI) *OpenAIBackend {
	clientConfig := openai.DefaultConfig(ai.APIKey)
	if ai.BaseURL != "" {
		clientConfig.BaseURL = ai.BaseURL
	}
	return &OpenAIBackend{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      ai.ChatModel,
		timeout:    ai.Timeout,
		maxRetries: ai.MaxRetries,
		retryDelay: ai.RetryDelay,
	}
}

func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Generate sends the request with retry and exponential backoff
func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := util.CalculateBackoff(b.retryDelay, attempt)
			log.Printf("[LLM] Retrying generation (attempt %d/%d) after %v", attempt+1, b.maxRetries+1, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &BackendError{Backend: b.Name(), Err: ctx.Err()}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		resp, err := b.client.CreateChatCompletion(callCtx, chatReq)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in response")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", &BackendError{
		Backend: b.Name(),
		Err:     fmt.Errorf("generation failed after %d attempts: %w", b.maxRetries+1, lastErr),
	}
}
