// ABOUTME: Message persistence operations for SQLite
// ABOUTME: Idempotent saves plus windowed, unprocessed and search queries
package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harper/chatdigest/internal/models"
)

// MessageStore handles collected message persistence
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Save stores a message. A message already present under the same
// (platform, chat_id, external_id) is left untouched; re-collecting an
// overlapping window is a no-op. Returns true when the row was inserted.
func (s *MessageStore) Save(msg models.Message) (bool, error) {
	urls, err := json.Marshal(urlsOrEmpty(msg.URLs))
	if err != nil {
		return false, err
	}
	tags, err := json.Marshal(urlsOrEmpty(msg.Tags))
	if err != nil {
		return false, err
	}

	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO messages
			(id, platform, external_id, chat_id, chat_name, author_id, author_name,
			 content, timestamp, urls, account, views, forwards, replies, summary, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, string(msg.Platform), msg.ExternalID, msg.ChatID, msg.ChatName,
		msg.AuthorID, msg.AuthorName, msg.Content, msg.Timestamp.UTC(), string(urls),
		msg.Account, msg.Engagement.Views, msg.Engagement.Forwards, msg.Engagement.Replies,
		msg.Summary, string(tags))
	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveBatch stores a slice of messages and returns how many were new
func (s *MessageStore) SaveBatch(msgs []models.Message) (int, error) {
	inserted := 0
	for _, msg := range msgs {
		ok, err := s.Save(msg)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// GetUnprocessed returns messages not yet included in a report, oldest first
func (s *MessageStore) GetUnprocessed(limit int) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, platform, external_id, chat_id, chat_name, author_id, author_name,
		       content, timestamp, urls, account, views, forwards, replies, summary, tags
		FROM messages
		WHERE processed = 0
		ORDER BY timestamp ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return s.scanMessages(rows)
}

// MarkProcessed flags the given message ids as included in a report
func (s *MessageStore) MarkProcessed(ids []string) error {
	for _, id := range ids {
		if _, err := s.db.Exec("UPDATE messages SET processed = 1 WHERE id = ?", id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSummary stores the per-message AI summary and tags
func (s *MessageStore) UpdateSummary(id, summary string, tags []string) error {
	encoded, err := json.Marshal(urlsOrEmpty(tags))
	if err != nil {
		return err
	}
	_, err = s.db.Exec("UPDATE messages SET summary = ?, tags = ? WHERE id = ?", summary, string(encoded), id)
	return err
}

// Between returns messages with timestamp in [start, end), oldest first
func (s *MessageStore) Between(start, end time.Time) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, platform, external_id, chat_id, chat_name, author_id, author_name,
		       content, timestamp, urls, account, views, forwards, replies, summary, tags
		FROM messages
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return s.scanMessages(rows)
}

// Recent returns the newest messages, newest first
func (s *MessageStore) Recent(limit int) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, platform, external_id, chat_id, chat_name, author_id, author_name,
		       content, timestamp, urls, account, views, forwards, replies, summary, tags
		FROM messages
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return s.scanMessages(rows)
}

// Search returns messages whose content or summary contains the query
func (s *MessageStore) Search(query string, limit int) ([]models.Message, error) {
	likePattern := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT id, platform, external_id, chat_id, chat_name, author_id, author_name,
		       content, timestamp, urls, account, views, forwards, replies, summary, tags
		FROM messages
		WHERE content LIKE ? OR summary LIKE ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, likePattern, likePattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return s.scanMessages(rows)
}

// Count returns the total number of stored messages
func (s *MessageStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

// scanMessages scans rows into a slice of Message
func (s *MessageStore) scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message

	for rows.Next() {
		var (
			msg      models.Message
			platform string
			urls     string
			tags     string
		)

		err := rows.Scan(&msg.ID, &platform, &msg.ExternalID, &msg.ChatID, &msg.ChatName,
			&msg.AuthorID, &msg.AuthorName, &msg.Content, &msg.Timestamp, &urls,
			&msg.Account, &msg.Engagement.Views, &msg.Engagement.Forwards,
			&msg.Engagement.Replies, &msg.Summary, &tags)
		if err != nil {
			return nil, err
		}

		msg.Platform = models.Platform(platform)
		if err := json.Unmarshal([]byte(urls), &msg.URLs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &msg.Tags); err != nil {
			return nil, err
		}
		if len(msg.URLs) == 0 {
			msg.URLs = nil
		}
		if len(msg.Tags) == 0 {
			msg.Tags = nil
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// urlsOrEmpty keeps JSON columns as arrays, never null
func urlsOrEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
