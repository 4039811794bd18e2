package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hyperjump/doctext/internal/models"
)

var (
	// recordsBucket maps an ordering key (created_at nanos + sequence) to a JSON record.
	recordsBucket = []byte("records")
	// idsBucket maps a record ID to its ordering key.
	idsBucket = []byte("ids")
)

// BoltStorage implements Storage on a single bbolt file. It needs no cgo.
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage opens or creates a bbolt database at dbPath.
// Parent directories are created if they do not exist.
func NewBoltStorage(dbPath string) (*BoltStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, idsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &BoltStorage{db: db}, nil
}

func orderKey(created time.Time, seq uint64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(created.UnixNano()))
	binary.BigEndian.PutUint64(key[8:], seq)
	return key
}

// SaveRecord stores rec, replacing any record with the same ID.
// CreatedAt is set when zero.
func (s *BoltStorage) SaveRecord(ctx context.Context, rec *models.ExtractionRecord) error {
	if rec.ID == "" {
		return errors.New("record id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		records, ids := tx.Bucket(recordsBucket), tx.Bucket(idsBucket)
		if old := ids.Get([]byte(rec.ID)); old != nil {
			if err := records.Delete(old); err != nil {
				return err
			}
		}
		seq, err := records.NextSequence()
		if err != nil {
			return err
		}
		key := orderKey(rec.CreatedAt, seq)
		if err := records.Put(key, data); err != nil {
			return err
		}
		return ids.Put([]byte(rec.ID), key)
	})
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

// GetRecord returns a record by ID, or an error matching ErrNotFound.
func (s *BoltStorage) GetRecord(ctx context.Context, id string) (*models.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *models.ExtractionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(idsBucket).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var err error
		rec, err = decodeRecord(tx.Bucket(recordsBucket).Get(key))
		return err
	})
	return rec, err
}

// ListRecords returns records newest first with offset and limit.
func (s *BoltStorage) ListRecords(ctx context.Context, offset, limit int) ([]*models.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var recs []*models.ExtractionRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		skipped := 0
		for k, v := c.Last(); k != nil && len(recs) < limit; k, v = c.Prev() {
			if skipped < offset {
				skipped++
				continue
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	return recs, err
}

// CountByStatus returns the number of records per status.
func (s *BoltStorage) CountByStatus(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(_, v []byte) error {
			var r struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			counts[r.Status]++
			return nil
		})
	})
	return counts, err
}

// Close closes the database file.
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func decodeRecord(data []byte) (*models.ExtractionRecord, error) {
	if data == nil {
		return nil, errors.New("dangling record index")
	}
	var rec models.ExtractionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
