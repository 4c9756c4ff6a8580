// ABOUTME: Token-budgeted batching of ordered message lists
// ABOUTME: Cheap local token estimate; contiguous batches with offset addressing
package chunker

import (
	"fmt"
	"unicode"

	"github.com/harper/chatdigest/internal/models"
)

// wideRanges are the scripts weighted as two tokens per character
var wideRanges = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

// EstimateTokens approximates the backend token count of a string without
// any network or model call: whitespace-delimited ASCII words count one
// each, wide (CJK-range) characters two each, and every remaining
// character one half, rounded up.
func EstimateTokens(s string) int {
	words, wide, others := 0, 0, 0
	inWord := false

	for _, r := range s {
		switch {
		case r < 128:
			if unicode.IsSpace(r) {
				inWord = false
			} else if !inWord {
				words++
				inWord = true
			}
		case unicode.In(r, wideRanges...):
			wide++
			inWord = false
		default:
			others++
			inWord = false
		}
	}

	return words + 2*wide + (others+1)/2
}

// EstimateMessage estimates the token cost of one record
func EstimateMessage(msg models.Message) int {
	return EstimateTokens(msg.Content)
}

// Split partitions records into contiguous batches whose estimated size
// stays within budget. A record is appended when the batch is empty or it
// still fits; otherwise the batch is closed and a new one opened with it.
// A single record above budget forms a batch alone, so the scan always
// advances and never drops data. Empty input yields zero batches.
func Split(records []models.Message, budget int) ([]models.Batch, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("chunker: token budget must be positive, got %d", budget)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var batches []models.Batch
	current := models.Batch{StartOffset: 0}

	for i, rec := range records {
		tokens := EstimateMessage(rec)
		if len(current.Records) > 0 && current.EstimatedTokens+tokens > budget {
			batches = append(batches, current)
			current = models.Batch{StartOffset: i}
		}
		current.Records = append(current.Records, rec)
		current.EstimatedTokens += tokens
	}

	return append(batches, current), nil
}
