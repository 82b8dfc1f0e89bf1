package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is a page flagged for deletion because one of its path segments
// ends with a configured suffix.
type Candidate struct {
	URL          string  `json:"url"`
	LastModified *string `json:"ultima_actualizacion"`
}

// Report is the outcome of one collection + matching run.
type Report struct {
	Sitemap      string      `json:"sitemap"`
	Suffixes     []string    `json:"suffixes"`
	TotalURLs    int         `json:"total_urls"`
	URLsToDelete []Candidate `json:"urls_to_delete"`
	Count        int         `json:"count"`
	ElapsedMS    int64       `json:"elapsed_ms"`
}

// ReportRecord is an archived report.
type ReportRecord struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Report
}

// NewReportRecord wraps a report with a generated UUID and timestamp
func NewReportRecord(r Report) *ReportRecord {
	return &ReportRecord{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Report:    r,
	}
}
