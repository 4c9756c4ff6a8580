// ABOUTME: End-to-end digest generation from deduplicated records
// ABOUTME: Chunks, summarizes per batch, then aggregates with containment
package digest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/harper/chatdigest/internal/chunker"
	"github.com/harper/chatdigest/internal/llm"
	"github.com/harper/chatdigest/internal/models"
)

// Pipeline runs chunking, per-batch summarization and aggregation
type Pipeline struct {
	summarizer *Summarizer
	aggregator *Aggregator
	budget     int
}

func NewPipeline(backend llm.Backend, temperature float32, tokenBudget int) *Pipeline {
	return &Pipeline{
		summarizer: NewSummarizer(backend, temperature),
		aggregator: NewAggregator(backend, temperature),
		budget:     tokenBudget,
	}
}

// Generate digests the record list. A batch whose generation call fails is
// replaced by a placeholder section and marks the result degraded; the run
// itself keeps going. Parse failures are also contained per batch, but the
// joined parse errors are returned alongside the (still complete) result so
// callers know which structured outputs were unusable. The result is always
// valid; the error never means the digest is missing.
func (p *Pipeline) Generate(ctx context.Context, records []models.Message) (models.DigestResult, error) {
	batches, err := chunker.Split(records, p.budget)
	if err != nil {
		return models.DigestResult{}, err
	}
	if len(batches) == 0 {
		log.Printf("[Digest] Nothing to summarize")
		return models.DigestResult{}, nil
	}
	log.Printf("[Digest] Summarizing %d records in %d batches", len(records), len(batches))

	degraded := false
	var parseErrs []error
	summaries := make([]models.BatchSummary, len(batches))
	for i, batch := range batches {
		summary, err := p.summarizer.SummarizeBatch(ctx, batch)
		if err != nil {
			var parseErr *llm.ParseError
			if errors.As(err, &parseErr) {
				parseErrs = append(parseErrs, fmt.Errorf("batch %d: %w", i+1, err))
			}
			log.Printf("[Digest] Batch %d/%d failed: %v", i+1, len(batches), err)
			summary = models.BatchSummary{
				Text: fmt.Sprintf("_Summary for this section (%d messages) is unavailable._", len(batch.Records)),
			}
			degraded = true
		}
		summaries[i] = summary
	}

	result := p.aggregator.Aggregate(ctx, batches, summaries)
	result.Degraded = result.Degraded || degraded
	return result, errors.Join(parseErrs...)
}
