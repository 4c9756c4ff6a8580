// ABOUTME: Report is a generated digest persisted for delivery and review
// ABOUTME: ScrapedContent holds fetched link content used to enrich summaries
package models

import "time"

// ReportKind distinguishes the scheduled report flavors
type ReportKind string

const (
	ReportHourly ReportKind = "hourly"
	ReportDaily  ReportKind = "daily"
)

// Report is one generated digest covering a collection window
type Report struct {
	ID           string     `json:"id"`
	Kind         ReportKind `json:"kind"`
	PeriodStart  time.Time  `json:"period_start"`
	PeriodEnd    time.Time  `json:"period_end"`
	Content      string     `json:"content"`
	MessageCount int        `json:"message_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ScrapedContent is the markdown rendering of one linked page
type ScrapedContent struct {
	URL       string    `json:"url"`
	Title     string    `json:"title,omitempty"`
	Markdown  string    `json:"markdown"`
	FetchedAt time.Time `json:"fetched_at"`
}
