package main

import "sync/atomic"

// ExportStats accumulates counters across an export run. All fields are
// atomic so image processing and batch fetching can update them
// concurrently.
type ExportStats struct {
	NotesProcessed  atomic.Int64
	NotesSkipped    atomic.Int64
	ImagesExtracted atomic.Int64
	ImagesFailed    atomic.Int64
	ImageBytes      atomic.Int64
	Errors          atomic.Int64
	Warnings        atomic.Int64
	TotalBytes      atomic.Int64
}

func NewExportStats() *ExportStats {
	return &ExportStats{}
}

// StatsSnapshot is a point-in-time copy of the counters for reporting.
type StatsSnapshot struct {
	NotesProcessed  int64 `json:"notes_processed"`
	NotesSkipped    int64 `json:"notes_skipped"`
	ImagesExtracted int64 `json:"images_extracted"`
	ImagesFailed    int64 `json:"images_failed"`
	ImageBytes      int64 `json:"image_bytes"`
	Errors          int64 `json:"errors"`
	Warnings        int64 `json:"warnings"`
	TotalBytes      int64 `json:"total_bytes"`
}

func (s *ExportStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		NotesProcessed:  s.NotesProcessed.Load(),
		NotesSkipped:    s.NotesSkipped.Load(),
		ImagesExtracted: s.ImagesExtracted.Load(),
		ImagesFailed:    s.ImagesFailed.Load(),
		ImageBytes:      s.ImageBytes.Load(),
		Errors:          s.Errors.Load(),
		Warnings:        s.Warnings.Load(),
		TotalBytes:      s.TotalBytes.Load(),
	}
}
