// Package models defines the records and API payloads shared by storage, server and CLI.
package models

import "time"

// ExtractionRecord is the persisted diagnostic trail of one extraction.
// It never holds the extracted text.
type ExtractionRecord struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name,omitempty" db:"name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Format      string    `json:"format,omitempty" db:"format"`
	Status      string    `json:"status" db:"status"`
	Bytes       int64     `json:"bytes" db:"bytes"`
	Chars       int       `json:"chars" db:"chars"`
	DurationMS  int64     `json:"duration_ms" db:"duration_ms"`
	Cause       string    `json:"cause,omitempty" db:"cause"`
	Source      string    `json:"source,omitempty" db:"source"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ExtractResponse is returned by the extract endpoint and the CLI's JSON output.
// Absent is set when a CSV upload could not be decoded.
type ExtractResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	Status      string `json:"status"`
	Text        string `json:"text"`
	Absent      bool   `json:"absent,omitempty"`
}

// StatusResponse summarizes the extraction history.
type StatusResponse struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	DiskUsageBytes int64            `json:"disk_usage_bytes,omitempty"`
}
