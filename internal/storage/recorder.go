package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/models"
)

// saveTimeout bounds a single history write.
const saveTimeout = 5 * time.Second

// Recorder persists extraction reports. Pass Observe to extract.WithObserver.
type Recorder struct {
	store  Storage
	source string
	logger *zap.Logger
}

// NewRecorder returns a Recorder tagging every record with source ("api", "cli", "watch").
func NewRecorder(store Storage, source string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, source: source, logger: logger}
}

// Observe saves rep. Storage errors are logged, never returned, so history
// problems cannot change extraction results.
func (r *Recorder) Observe(rep extract.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	rec := RecordFromReport(rep, r.source)
	if err := r.store.SaveRecord(ctx, rec); err != nil {
		r.logger.Warn("save extraction record failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

// RecordFromReport converts an extraction report into a storable record.
func RecordFromReport(rep extract.Report, source string) *models.ExtractionRecord {
	rec := &models.ExtractionRecord{
		ID:          rep.ID,
		Name:        rep.Name,
		ContentType: rep.ContentType,
		Status:      string(rep.Status),
		Bytes:       rep.Bytes,
		Chars:       rep.Chars,
		DurationMS:  rep.Duration.Milliseconds(),
		Source:      source,
	}
	if rep.Format != 0 {
		rec.Format = rep.Format.String()
	}
	if rep.Cause != nil {
		rec.Cause = rep.Cause.Error()
	}
	return rec
}
