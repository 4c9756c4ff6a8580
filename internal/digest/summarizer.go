// ABOUTME: Per-batch and per-message summarization through the LLM backend
// ABOUTME: Builds grouped prompts and parses structured JSON responses
package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/chatdigest/internal/llm"
	"github.com/harper/chatdigest/internal/models"
)

const batchSystemPrompt = "You are a professional market analyst summarizing chat activity. You output JSON."

const messageSystemPrompt = "You are a helpful assistant that outputs JSON."

// snippetLimit caps how much of each scraped page feeds the prompt
const snippetLimit = 2000

// Summarizer produces batch and message summaries via one backend
type Summarizer struct {
	backend     llm.Backend
	temperature float32
}

func NewSummarizer(backend llm.Backend, temperature float32) *Summarizer {
	return &Summarizer{backend: backend, temperature: temperature}
}

type batchPayload struct {
	Summary        string `json:"summary"`
	FlaggedIndices []int  `json:"flagged_indices"`
}

// SummarizeBatch summarizes one batch of records. Returned flagged indices
// are batch-relative; the aggregator translates them to absolute indices.
// A *llm.ParseError means the backend answered but the structured payload
// was unusable.
func (s *Summarizer) SummarizeBatch(ctx context.Context, batch models.Batch) (models.BatchSummary, error) {
	raw, err := s.backend.Generate(ctx, llm.Request{
		SystemPrompt: batchSystemPrompt,
		Prompt:       buildBatchPrompt(batch),
		Temperature:  s.temperature,
		JSONMode:     true,
	})
	if err != nil {
		return models.BatchSummary{}, err
	}

	var payload batchPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		return models.BatchSummary{}, err
	}
	return models.BatchSummary{Text: payload.Summary, FlaggedIndices: payload.FlaggedIndices}, nil
}

// buildBatchPrompt groups records by chat name in encounter order. Each
// record is numbered with its batch-relative index so the model can flag
// individual records.
func buildBatchPrompt(batch models.Batch) string {
	var b strings.Builder
	b.WriteString("Summarize the following chat messages collected across several groups.\n")
	b.WriteString("Your summary must cover: main discussion topics, overall sentiment, market outlook, and mentioned assets or projects. Note \"not mentioned\" for absent sections.\n")
	b.WriteString("Also flag any records that look like significant or breaking developments.\n\n")
	b.WriteString("Respond with JSON: {\"summary\": \"...\", \"flagged_indices\": [record numbers]}\n\n")

	var order []string
	grouped := make(map[string][]string)
	for i, rec := range batch.Records {
		name := rec.ChatName
		if name == "" {
			name = rec.ChatID
		}
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], fmt.Sprintf("[%d] %s", i, rec.Content))
	}

	for _, name := range order {
		fmt.Fprintf(&b, "### Group: %s\n", name)
		for _, line := range grouped[name] {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type messagePayload struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// SummarizeMessage produces a short summary and 3-5 tags for one message,
// optionally enriched with scraped link content
func (s *Summarizer) SummarizeMessage(ctx context.Context, msg models.Message, scraped []models.ScrapedContent) (string, []string, error) {
	var b strings.Builder
	b.WriteString("Extract the core information from this chat message and produce a structured brief.\n")
	b.WriteString("Respond with JSON: {\"summary\": \"what the message says and why it matters, under 200 words\", \"tags\": [\"3-5 keyword tags\"]}\n\n")
	fmt.Fprintf(&b, "Message: %s\n\n", msg.Content)
	for i, sc := range scraped {
		snippet := sc.Markdown
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		fmt.Fprintf(&b, "Link %d (%s) content snippet:\n%s\n\n", i+1, sc.URL, snippet)
	}

	raw, err := s.backend.Generate(ctx, llm.Request{
		SystemPrompt: messageSystemPrompt,
		Prompt:       b.String(),
		Temperature:  s.temperature,
		JSONMode:     true,
	})
	if err != nil {
		return "", nil, err
	}

	var payload messagePayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		return "", nil, err
	}
	return payload.Summary, payload.Tags, nil
}
