// ABOUTME: Extracts JSON payloads from model output that may carry prose
// ABOUTME: Handles markdown fences and single-element array wrapping
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports model output that could not be coerced into the
// expected JSON shape. The raw output is kept for logging.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractJSON unmarshals the first JSON object found in raw into v.
// Models frequently wrap output in markdown fences or lead with prose;
// both are stripped before decoding. A single-element JSON array is
// unwrapped to its element.
func ExtractJSON(raw string, v interface{}) error {
	candidate := stripFences(strings.TrimSpace(raw))

	// Cut leading/trailing prose around the outermost object or array
	start := strings.IndexAny(candidate, "{[")
	if start < 0 {
		return &ParseError{Raw: raw, Err: fmt.Errorf("no JSON object in output")}
	}
	end := strings.LastIndexAny(candidate, "}]")
	if end < start {
		return &ParseError{Raw: raw, Err: fmt.Errorf("unterminated JSON in output")}
	}
	candidate = candidate[start : end+1]

	// Unwrap a single-element array wrapper
	if strings.HasPrefix(candidate, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &elems); err == nil && len(elems) == 1 {
			candidate = string(elems[0])
		}
	}

	if err := json.Unmarshal([]byte(candidate), v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the optional language tag on the fence line
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
