// ABOUTME: Report persistence operations for SQLite
// ABOUTME: Generated digests are kept for delivery, sync and the dashboard
package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/harper/chatdigest/internal/models"
)

// ReportStore handles generated report persistence
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new ReportStore
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save stores a report, assigning an id and creation time when missing
func (s *ReportStore) Save(report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO reports (id, kind, period_start, period_end, content, message_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			content = excluded.content,
			message_count = excluded.message_count
	`, report.ID, string(report.Kind), report.PeriodStart.UTC(), report.PeriodEnd.UTC(),
		report.Content, report.MessageCount, report.CreatedAt)

	return err
}

// GetByID retrieves a report, or nil when absent
func (s *ReportStore) GetByID(id string) (*models.Report, error) {
	var (
		report models.Report
		kind   string
	)

	err := s.db.QueryRow(`
		SELECT id, kind, period_start, period_end, content, message_count, created_at
		FROM reports
		WHERE id = ?
	`, id).Scan(&report.ID, &kind, &report.PeriodStart, &report.PeriodEnd,
		&report.Content, &report.MessageCount, &report.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	report.Kind = models.ReportKind(kind)
	return &report, nil
}

// Recent returns the newest reports, newest first
func (s *ReportStore) Recent(limit int) ([]models.Report, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, period_start, period_end, content, message_count, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reports []models.Report
	for rows.Next() {
		var (
			report models.Report
			kind   string
		)
		err := rows.Scan(&report.ID, &kind, &report.PeriodStart, &report.PeriodEnd,
			&report.Content, &report.MessageCount, &report.CreatedAt)
		if err != nil {
			return nil, err
		}
		report.Kind = models.ReportKind(kind)
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// Count returns the total number of stored reports
func (s *ReportStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&n)
	return n, err
}
