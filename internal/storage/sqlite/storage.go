// ABOUTME: Unified Storage layer wrapping the SQLite stores
// ABOUTME: One handle owns the connection and both stores
package sqlite

import (
	"fmt"
)

// Storage manages all persistent data for the digest system
type Storage struct {
	db       *DB
	messages *MessageStore
	reports  *ReportStore
}

// NewStorage initializes storage at the default database path
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{
		db:       db,
		messages: NewMessageStore(db),
		reports:  NewReportStore(db),
	}, nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	return &Storage{
		db:       db,
		messages: NewMessageStore(db),
		reports:  NewReportStore(db),
	}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Messages returns the message store
func (s *Storage) Messages() *MessageStore { return s.messages }

// Reports returns the report store
func (s *Storage) Reports() *ReportStore { return s.reports }

// Path returns the database file path
func (s *Storage) Path() string { return s.db.Path() }
