// ABOUTME: Message is the unified record for one fetched chat message
// ABOUTME: Immutable after creation; consumed by dedup, chunking and storage
package models

import (
	"fmt"
	"time"
)

// Platform identifies the chat platform a message came from
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
	PlatformWeChat   Platform = "wechat"
)

// Engagement holds the platform's engagement counters for a message
type Engagement struct {
	Views    int `json:"views"`
	Forwards int `json:"forwards"`
	Replies  int `json:"replies"`
}

// Message is one fetched chat message in unified form.
// ID is globally unique per fetch: "<account_id>:<platform_message_id>",
// so the same platform message seen by two accounts gets two distinct IDs.
type Message struct {
	ID         string     `json:"id"`
	Platform   Platform   `json:"platform"`
	ExternalID string     `json:"external_id"`
	ChatID     string     `json:"chat_id"`
	ChatName   string     `json:"chat_name,omitempty"`
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	URLs       []string   `json:"urls,omitempty"`
	Account    string     `json:"account"`
	Engagement Engagement `json:"engagement"`

	// Filled in by the per-message summarizer after fetch
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// MessageID builds the globally unique record ID for a fetched message
func MessageID(accountID, externalID string) string {
	return fmt.Sprintf("%s:%s", accountID, externalID)
}
