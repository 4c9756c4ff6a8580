// ABOUTME: Gemini backend speaking the Generative Language API directly
// ABOUTME: Minimal generateContent client with retry and backoff
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/util"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiBackend posts to /v1beta/models/{model}:generateContent. Gemini has
// no system role, so the system prompt is folded into the user content.
type GeminiBackend struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
}

// NewGeminiBackend creates a backend for ai.GeminiModel
func NewGeminiBackend(ai config.AI) *GeminiBackend {
	return &GeminiBackend{
		httpClient: &http.Client{Timeout: ai.Timeout},
		baseURL:    defaultGeminiBaseURL,
		model:      ai.GeminiModel,
		apiKey:     ai.GeminiKey,
		maxRetries: ai.MaxRetries,
		retryDelay: ai.RetryDelay,
	}
}

func (b *GeminiBackend) Name() string {
	return "gemini"
}

// Wire format, minimal fields only
type gmPart struct {
	Text string `json:"text"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMIMEType string  `json:"response_mime_type,omitempty"`
}

type gmRequest struct {
	Contents         []gmContent        `json:"contents"`
	GenerationConfig gmGenerationConfig `json:"generationConfig"`
}

type gmResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the request with retry and exponential backoff
func (b *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + prompt
	}

	gr := gmRequest{
		Contents: []gmContent{{Role: "user", Parts: []gmPart{{Text: prompt}}}},
		GenerationConfig: gmGenerationConfig{
			Temperature: req.Temperature,
		},
	}
	if req.JSONMode {
		gr.GenerationConfig.ResponseMIMEType = "application/json"
	}
	body, err := json.Marshal(&gr)
	if err != nil {
		return "", &BackendError{Backend: b.Name(), Err: fmt.Errorf("encode request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(b.baseURL, "/"), url.PathEscape(b.model))

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := util.CalculateBackoff(b.retryDelay, attempt)
			log.Printf("[LLM] Retrying Gemini generation (attempt %d/%d) after %v", attempt+1, b.maxRetries+1, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &BackendError{Backend: b.Name(), Err: ctx.Err()}
			}
		}

		text, err := b.call(ctx, endpoint, body)
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}

	return "", &BackendError{
		Backend: b.Name(),
		Err:     fmt.Errorf("generation failed after %d attempts: %w", b.maxRetries+1, lastErr),
	}
}

func (b *GeminiBackend) call(ctx context.Context, endpoint string, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("gemini upstream %d: %s", resp.StatusCode, strings.TrimSpace(string(slurp)))
	}

	var gr gmResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}
