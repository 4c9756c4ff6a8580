// ABOUTME: Tests for message and report persistence
// ABOUTME: Runs against in-memory SQLite databases
package sqlite

import (
	"testing"
	"time"

	"github.com/harper/chatdigest/internal/models"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testMessage(externalID, chatID, content string, ts time.Time) models.Message {
	return models.Message{
		ID:         models.MessageID("collector1", externalID),
		Platform:   models.PlatformTelegram,
		ExternalID: externalID,
		ChatID:     chatID,
		ChatName:   "Test Chat",
		AuthorID:   "42",
		AuthorName: "alice",
		Content:    content,
		Timestamp:  ts,
		URLs:       []string{"https://example.com/a"},
		Account:    "collector1",
		Engagement: models.Engagement{Views: 10, Forwards: 2, Replies: 1},
	}
}

func TestMessageSaveAndRecent(t *testing.T) {
	s := testStorage(t)
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	inserted, err := s.Messages().Save(testMessage("100", "chat1", "hello", ts))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !inserted {
		t.Error("Save() = false, want true for a new message")
	}

	got, err := s.Messages().Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent() returned %d messages, want 1", len(got))
	}
	msg := got[0]
	if msg.ID != "collector1:100" || msg.Content != "hello" || msg.ChatName != "Test Chat" {
		t.Errorf("round-trip mismatch: %+v", msg)
	}
	if len(msg.URLs) != 1 || msg.URLs[0] != "https://example.com/a" {
		t.Errorf("URLs = %v", msg.URLs)
	}
	if msg.Engagement.Views != 10 {
		t.Errorf("Views = %d, want 10", msg.Engagement.Views)
	}
	if !msg.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, ts)
	}
}

func TestMessageSaveIdempotent(t *testing.T) {
	s := testStorage(t)
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	msg := testMessage("100", "chat1", "hello", ts)

	if _, err := s.Messages().Save(msg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Same platform message seen again, even through another account
	dup := msg
	dup.ID = models.MessageID("collector2", "100")
	dup.Account = "collector2"
	inserted, err := s.Messages().Save(dup)
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if inserted {
		t.Error("Save() = true for duplicate (platform, chat, external id), want false")
	}

	n, err := s.Messages().Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestMessageSaveBatch(t *testing.T) {
	s := testStorage(t)
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	msgs := []models.Message{
		testMessage("1", "chat1", "one", ts),
		testMessage("2", "chat1", "two", ts.Add(time.Minute)),
		testMessage("1", "chat1", "one again", ts), // duplicate
	}
	inserted, err := s.Messages().SaveBatch(msgs)
	if err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	if inserted != 2 {
		t.Errorf("SaveBatch() = %d, want 2", inserted)
	}
}

func TestMessageUnprocessedLifecycle(t *testing.T) {
	s := testStorage(t)
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, content := range []string{"a", "b", "c"} {
		msg := testMessage(string(rune('1'+i)), "chat1", content, ts.Add(time.Duration(i)*time.Minute))
		if _, err := s.Messages().Save(msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	unprocessed, err := s.Messages().GetUnprocessed(10)
	if err != nil {
		t.Fatalf("GetUnprocessed() error = %v", err)
	}
	if len(unprocessed) != 3 {
		t.Fatalf("GetUnprocessed() = %d messages, want 3", len(unprocessed))
	}
	// Oldest first
	if unprocessed[0].Content != "a" || unprocessed[2].Content != "c" {
		t.Errorf("unexpected order: %v, %v", unprocessed[0].Content, unprocessed[2].Content)
	}

	if err := s.Messages().MarkProcessed([]string{unprocessed[0].ID, unprocessed[1].ID}); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}

	remaining, err := s.Messages().GetUnprocessed(10)
	if err != nil {
		t.Fatalf("GetUnprocessed() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].Content != "c" {
		t.Errorf("remaining = %+v, want only c", remaining)
	}
}

func TestMessageUpdateSummary(t *testing.T) {
	s := testStorage(t)
	msg := testMessage("1", "chat1", "raw content", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if _, err := s.Messages().Save(msg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Messages().UpdateSummary(msg.ID, "a brief", []string{"btc", "news"}); err != nil {
		t.Fatalf("UpdateSummary() error = %v", err)
	}

	got, err := s.Messages().Recent(1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if got[0].Summary != "a brief" {
		t.Errorf("Summary = %q", got[0].Summary)
	}
	if len(got[0].Tags) != 2 || got[0].Tags[0] != "btc" {
		t.Errorf("Tags = %v", got[0].Tags)
	}
}

func TestMessageBetweenWindow(t *testing.T) {
	s := testStorage(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		msg := testMessage(string(rune('1'+i)), "chat1", "m", base.Add(time.Duration(i)*time.Hour))
		if _, err := s.Messages().Save(msg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	// Half-open window: 10:00 included, 12:00 excluded
	got, err := s.Messages().Between(base.Add(time.Hour), base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Between() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Between() = %d messages, want 2", len(got))
	}
}

func TestMessageSearch(t *testing.T) {
	s := testStorage(t)
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, err := s.Messages().Save(testMessage("1", "chat1", "BTC is pumping", ts)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s.Messages().Save(testMessage("2", "chat1", "quiet afternoon", ts.Add(time.Minute))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Messages().Search("BTC", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "1" {
		t.Errorf("Search() = %+v, want the BTC message", got)
	}
}

func TestReportSaveAndRetrieve(t *testing.T) {
	s := testStorage(t)

	report := &models.Report{
		Kind:         models.ReportHourly,
		PeriodStart:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Content:      "# Digest\n\nNothing much happened.",
		MessageCount: 42,
	}
	if err := s.Reports().Save(report); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if report.ID == "" {
		t.Fatal("Save() did not assign an ID")
	}
	if report.CreatedAt.IsZero() {
		t.Fatal("Save() did not assign CreatedAt")
	}

	got, err := s.Reports().GetByID(report.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() = nil")
	}
	if got.Kind != models.ReportHourly || got.MessageCount != 42 {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	missing, err := s.Reports().GetByID("no-such-id")
	if err != nil {
		t.Fatalf("GetByID(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByID(missing) = %+v, want nil", missing)
	}
}

func TestReportRecentOrder(t *testing.T) {
	s := testStorage(t)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		report := &models.Report{
			Kind:        models.ReportHourly,
			PeriodStart: base,
			PeriodEnd:   base.Add(time.Hour),
			Content:     "r",
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.Reports().Save(report); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := s.Reports().Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() = %d reports, want 2", len(got))
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Errorf("Recent() not newest first: %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}
}
