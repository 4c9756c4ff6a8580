// ABOUTME: Batch and BatchSummary types for token-budgeted chunking
// ABOUTME: Batches keep per-record addressability via StartOffset
package models

// Batch is a contiguous slice of the deduplicated record list sized to fit
// one generation call. StartOffset is the original-list index of the first
// record, so an index reported relative to the batch translates back via
// absolute = StartOffset + relative.
type Batch struct {
	StartOffset     int       `json:"start_offset"`
	Records         []Message `json:"records"`
	EstimatedTokens int       `json:"estimated_tokens"`
}

// AbsoluteIndex translates a batch-relative index to an index into the
// original record list
func (b *Batch) AbsoluteIndex(relative int) int {
	return b.StartOffset + relative
}

// BatchSummary is the per-batch output of one generation call. Flagged
// indices are batch-relative until translated by the aggregator.
type BatchSummary struct {
	Text           string `json:"text"`
	FlaggedIndices []int  `json:"flagged_indices,omitempty"`
}

// DigestResult is the aggregated output across all batches of one run.
// FlaggedIndices are absolute indices into the record list the chunker saw.
type DigestResult struct {
	Text           string `json:"text"`
	FlaggedIndices []int  `json:"flagged_indices,omitempty"`
	BatchCount     int    `json:"batch_count"`
	Degraded       bool   `json:"degraded,omitempty"`
}
