package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/doctext/internal/extract"
)

// outputSuffix is appended to the source file name, so lease.pdf becomes lease.pdf.txt.
const outputSuffix = ".txt"

// Outbox extracts inbox files and mirrors their text under an output directory.
type Outbox struct {
	inbox     string
	outbox    string
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewOutbox returns an Outbox writing text for files under inbox into outbox.
// Relative directories are resolved against the working directory.
func NewOutbox(inbox, outbox string, extractor *extract.Extractor, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{
		inbox:     absPath(inbox),
		outbox:    absPath(outbox),
		extractor: extractor,
		logger:    logger,
	}
}

// OutputPath returns where the text for the inbox file at path is written.
func (o *Outbox) OutputPath(path string) (string, error) {
	rel, err := filepath.Rel(o.inbox, absPath(path))
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is outside inbox %s", path, o.inbox)
	}
	return filepath.Join(o.outbox, rel+outputSuffix), nil
}

// Process extracts the file at path and writes its text. Failed extractions
// still write an empty file, except absent CSV results, which remove any
// previous output instead.
func (o *Outbox) Process(path string) error {
	out, err := o.OutputPath(path)
	if err != nil {
		return err
	}
	text, err := o.extractor.ExtractFile(path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}
	if text.Absent {
		o.logger.Debug("no text for file", zap.String("path", path))
		return o.remove(out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, []byte(text.Value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", out, err)
	}
	o.logger.Debug("wrote text", zap.String("path", path), zap.String("output", out), zap.Int("bytes", len(text.Value)))
	return nil
}

// Remove deletes the output for an inbox file that disappeared.
func (o *Outbox) Remove(path string) error {
	out, err := o.OutputPath(path)
	if err != nil {
		return err
	}
	return o.remove(out)
}

func (o *Outbox) remove(out string) error {
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", out, err)
	}
	return nil
}
