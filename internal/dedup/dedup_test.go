// ABOUTME: Tests for cross-account message deduplication
// ABOUTME: Covers determinism, tie-break, policies and degenerate records
package dedup

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/harper/chatdigest/internal/models"
)

func msgAt(id, content string, ts time.Time, urls ...string) models.Message {
	return models.Message{ID: id, Content: content, Timestamp: ts, URLs: urls}
}

func TestDeduplicateEmpty(t *testing.T) {
	d := New(Policy{ByContent: true, ByLinks: true})
	if got := d.Deduplicate(nil); got != nil {
		t.Errorf("Deduplicate(nil) = %v, want nil", got)
	}
	if got := d.Deduplicate([]models.Message{}); got != nil {
		t.Errorf("Deduplicate(empty) = %v, want nil", got)
	}
}

func TestContentDedupKeepsEarlier(t *testing.T) {
	// Two accounts both observe the same content at chan-A, 10s apart.
	base := time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC)
	d := New(Policy{ByContent: true})

	in := []models.Message{
		msgAt("collector2:9", "BTC up 5%", base.Add(10*time.Second)),
		msgAt("collector1:7", "BTC up 5%", base),
	}

	got := d.Deduplicate(in)
	if len(got) != 1 {
		t.Fatalf("Deduplicate() kept %d records, want 1", len(got))
	}
	if got[0].ID != "collector1:7" {
		t.Errorf("kept record = %s, want collector1:7 (earlier timestamp)", got[0].ID)
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("kept timestamp = %v, want %v", got[0].Timestamp, base)
	}
}

func TestTieBreakIndependentOfOrder(t *testing.T) {
	base := time.Now()
	d := New(Policy{ByContent: true})

	early := msgAt("a:1", "same text", base)
	late := msgAt("b:2", "same text", base.Add(time.Minute))

	for name, in := range map[string][]models.Message{
		"early first": {early, late},
		"late first":  {late, early},
	} {
		t.Run(name, func(t *testing.T) {
			got := d.Deduplicate(in)
			if len(got) != 1 || got[0].ID != "a:1" {
				t.Errorf("kept = %v, want [a:1]", ids(got))
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	d := New(Policy{ByContent: true, ByLinks: true})
	base := time.Now()

	var in []models.Message
	for i := 0; i < 50; i++ {
		in = append(in, msgAt(
			fmt.Sprintf("acct%d:%d", i%3, i),
			fmt.Sprintf("message body %d", i%20),
			base.Add(time.Duration(i)*time.Second),
		))
	}

	first := ids(d.Deduplicate(in))
	second := ids(d.Deduplicate(in))

	if len(first) != len(second) {
		t.Fatalf("run cardinality differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("surviving set differs at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestLinkDedup(t *testing.T) {
	d := New(Policy{ByLinks: true})
	base := time.Now()

	in := []models.Message{
		msgAt("a:1", "look at this", base, "https://x.test/p", "https://y.test/q"),
		// Same link set, different order and different wording.
		msgAt("b:2", "check it out", base.Add(time.Second), "https://y.test/q", "https://x.test/p"),
	}

	got := d.Deduplicate(in)
	if len(got) != 1 || got[0].ID != "a:1" {
		t.Errorf("kept = %v, want [a:1]", ids(got))
	}
}

func TestContentAndLinkKeysCombine(t *testing.T) {
	d := New(Policy{ByContent: true, ByLinks: true})
	base := time.Now()

	// Same content but different link sets must not merge: the key is the
	// ordered concatenation of both signals.
	in := []models.Message{
		msgAt("a:1", "release notes", base, "https://x.test/v1"),
		msgAt("b:2", "release notes", base.Add(time.Second), "https://x.test/v2"),
	}

	got := d.Deduplicate(in)
	if len(got) != 2 {
		t.Errorf("Deduplicate() kept %d records, want 2", len(got))
	}
}

func TestEmptyRecordsNeverMerge(t *testing.T) {
	d := New(Policy{ByContent: true, ByLinks: true})
	base := time.Now()

	// No body, no links: degenerates to id-based keying, so two distinct
	// records survive even though both are content-less.
	in := []models.Message{
		msgAt("a:1", "", base),
		msgAt("b:2", "   ", base),
	}

	got := d.Deduplicate(in)
	if len(got) != 2 {
		t.Errorf("Deduplicate() kept %d records, want 2", len(got))
	}
}

func TestPoliciesDisabledFallsBackToID(t *testing.T) {
	d := New(Policy{})
	base := time.Now()

	in := []models.Message{
		msgAt("a:1", "identical", base),
		msgAt("b:2", "identical", base),
	}

	got := d.Deduplicate(in)
	if len(got) != 2 {
		t.Errorf("Deduplicate() kept %d records, want 2 (no policy enabled)", len(got))
	}
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	sort.Strings(out)
	return out
}
