// ABOUTME: Combines per-batch summaries into one digest result
// ABOUTME: Falls back to labeled concatenation when the combine call fails
package digest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/harper/chatdigest/internal/llm"
	"github.com/harper/chatdigest/internal/models"
)

const aggregateSystemPrompt = "You are a professional market analyst. You merge partial chat summaries into one coherent report."

// Aggregator merges the ordered per-batch summaries of one run
type Aggregator struct {
	backend     llm.Backend
	temperature float32
}

func NewAggregator(backend llm.Backend, temperature float32) *Aggregator {
	return &Aggregator{backend: backend, temperature: temperature}
}

// Aggregate combines summaries into one result. Flagged indices are
// translated to absolute positions using each summary's batch. With exactly
// one batch the summary text passes through unchanged. Aggregate never
// fails: when the combination call errors, the summaries are concatenated
// under labeled section headers instead.
func (a *Aggregator) Aggregate(ctx context.Context, batches []models.Batch, summaries []models.BatchSummary) models.DigestResult {
	result := models.DigestResult{
		BatchCount:     len(summaries),
		FlaggedIndices: translateFlagged(batches, summaries),
	}
	if len(summaries) == 0 {
		return result
	}
	if len(summaries) == 1 {
		result.Text = summaries[0].Text
		return result
	}

	combined, err := a.combine(ctx, summaries)
	if err != nil {
		log.Printf("[Digest] Combination call failed, falling back to concatenation: %v", err)
		result.Text = concatenate(summaries)
		result.Degraded = true
		return result
	}
	result.Text = combined
	return result
}

func (a *Aggregator) combine(ctx context.Context, summaries []models.BatchSummary) (string, error) {
	var b strings.Builder
	b.WriteString("The following partial summaries each cover one slice of the same collection window, in order.\n")
	b.WriteString("Merge them into a single coherent report covering: main discussion topics, overall sentiment, market outlook, and mentioned assets or projects. Remove repetition across parts. Output markdown.\n\n")
	for i, s := range summaries {
		fmt.Fprintf(&b, "## Part %d\n%s\n\n", i+1, s.Text)
	}

	return a.backend.Generate(ctx, llm.Request{
		SystemPrompt: aggregateSystemPrompt,
		Prompt:       b.String(),
		Temperature:  a.temperature,
	})
}

func concatenate(summaries []models.BatchSummary) string {
	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Part %d of %d\n\n%s", i+1, len(summaries), s.Text)
	}
	return b.String()
}

// translateFlagged maps each summary's batch-relative flagged indices to
// absolute indices into the original record list, deduplicated and sorted
func translateFlagged(batches []models.Batch, summaries []models.BatchSummary) []int {
	seen := make(map[int]struct{})
	for i, s := range summaries {
		if i >= len(batches) {
			break
		}
		for _, rel := range s.FlaggedIndices {
			if rel < 0 || rel >= len(batches[i].Records) {
				log.Printf("[Digest] Dropping out-of-range flagged index %d for batch %d", rel, i)
				continue
			}
			seen[batches[i].AbsoluteIndex(rel)] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
