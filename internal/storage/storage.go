// Package storage persists the extraction history used as the operators' diagnostic channel.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/doctext/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines extraction record persistence operations.
type Storage interface {
	SaveRecord(ctx context.Context, rec *models.ExtractionRecord) error
	GetRecord(ctx context.Context, id string) (*models.ExtractionRecord, error)
	ListRecords(ctx context.Context, offset, limit int) ([]*models.ExtractionRecord, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)

	Close() error
}
