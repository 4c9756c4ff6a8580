// ABOUTME: Tests for JSON extraction from noisy model output
// ABOUTME: Covers fences, surrounding prose, and array unwrapping
package llm

import (
	"errors"
	"testing"
)

type summaryPayload struct {
	Summary string `json:"summary"`
	Flagged []int  `json:"flagged_indices"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSummary string
		wantFlagged []int
	}{
		{
			name:        "bare object",
			raw:         `{"summary": "quiet day", "flagged_indices": []}`,
			wantSummary: "quiet day",
		},
		{
			name:        "markdown fence with language tag",
			raw:         "```json\n{\"summary\": \"fenced\", \"flagged_indices\": [3]}\n```",
			wantSummary: "fenced",
			wantFlagged: []int{3},
		},
		{
			name:        "markdown fence without language tag",
			raw:         "```\n{\"summary\": \"plain fence\", \"flagged_indices\": []}\n```",
			wantSummary: "plain fence",
		},
		{
			name:        "leading and trailing prose",
			raw:         "Here is the summary you asked for:\n{\"summary\": \"prose wrapped\", \"flagged_indices\": [0, 7]}\nLet me know if you need more.",
			wantSummary: "prose wrapped",
			wantFlagged: []int{0, 7},
		},
		{
			name:        "single element array unwrapped",
			raw:         `[{"summary": "array wrapped", "flagged_indices": []}]`,
			wantSummary: "array wrapped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got summaryPayload
			if err := ExtractJSON(tt.raw, &got); err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if len(got.Flagged) != len(tt.wantFlagged) {
				t.Fatalf("Flagged = %v, want %v", got.Flagged, tt.wantFlagged)
			}
			for i, idx := range tt.wantFlagged {
				if got.Flagged[i] != idx {
					t.Errorf("Flagged[%d] = %d, want %d", i, got.Flagged[i], idx)
				}
			}
		})
	}
}

func TestExtractJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no JSON at all", raw: "I could not produce a summary."},
		{name: "truncated object", raw: `{"summary": "cut off`},
		{name: "empty output", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got summaryPayload
			err := ExtractJSON(tt.raw, &got)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("expected *ParseError, got %T", err)
			}
			if parseErr.Raw != tt.raw {
				t.Errorf("ParseError.Raw = %q, want %q", parseErr.Raw, tt.raw)
			}
		})
	}
}
