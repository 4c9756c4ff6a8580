// ABOUTME: Deduplicator collapses pooled multi-account fetches to one record
// ABOUTME: Key is content/link hashes per policy; earliest timestamp wins collisions
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/harper/chatdigest/internal/models"
)

// Policy selects which signals participate in the deduplication key
type Policy struct {
	ByContent bool
	ByLinks   bool
}

// Deduplicator reduces a pooled, unordered record set to one representative
// per semantic duplicate
type Deduplicator struct {
	policy Policy
}

// New creates a deduplicator with the given policy
func New(policy Policy) *Deduplicator {
	return &Deduplicator{policy: policy}
}

// Deduplicate runs one linear pass over the pooled messages. On a key
// collision the record with the earlier timestamp is kept; the first
// account to observe content is treated as authoritative. Output order is
// unspecified; callers needing order must sort downstream.
func (d *Deduplicator) Deduplicate(messages []models.Message) []models.Message {
	if len(messages) == 0 {
		return nil
	}

	kept := make(map[string]models.Message, len(messages))
	for _, msg := range messages {
		key := d.Key(msg)
		existing, ok := kept[key]
		if !ok || msg.Timestamp.Before(existing.Timestamp) {
			kept[key] = msg
		}
	}

	out := make([]models.Message, 0, len(kept))
	for _, msg := range kept {
		out = append(out, msg)
	}
	return out
}

// Key computes the deduplication key for one message: the ordered
// concatenation of the enabled signal hashes, falling back to the record's
// own unique id when no signal applies. A record with empty body and empty
// links therefore never merges with anything; content-less records carry no
// comparable signal.
func (d *Deduplicator) Key(msg models.Message) string {
	var parts []string

	if d.policy.ByContent {
		if body := strings.TrimSpace(msg.Content); body != "" {
			parts = append(parts, "content:"+hashString(body))
		}
	}
	if d.policy.ByLinks && len(msg.URLs) > 0 {
		links := append([]string(nil), msg.URLs...)
		sort.Strings(links)
		parts = append(parts, "url:"+hashString(strings.Join(links, "|")))
	}
	if len(parts) == 0 {
		return "id:" + msg.ID
	}
	return strings.Join(parts, "|")
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
