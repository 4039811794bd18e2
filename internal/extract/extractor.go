package extract

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Text is the value handed to callers. A failed extraction yields an empty
// Value, except for CSV where it yields Absent. Both count as "nothing usable".
type Text struct {
	Value  string
	Absent bool
}

// OK reports whether the text carries content.
func (t Text) OK() bool {
	return !t.Absent && t.Value != ""
}

// Status summarizes an extraction for the diagnostic channel.
type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusDegraded    Status = "degraded"
	StatusAbsent      Status = "absent"
	StatusUnsupported Status = "unsupported"
)

// Report describes one call to Extractor.Extract. Cause is set when the
// extraction failed; the text itself is never included.
type Report struct {
	ID          string
	Name        string
	ContentType string
	Format      Format
	Status      Status
	Bytes       int64
	Chars       int
	Duration    time.Duration
	Cause       error
}

// Extractor selects a strategy, runs it, logs failures and collapses the
// Result into a Text. It is safe for concurrent use.
type Extractor struct {
	logger   *zap.Logger
	observer func(Report)
	now      func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithObserver registers fn to receive a Report after every extraction.
func WithObserver(fn func(Report)) Option {
	return func(e *Extractor) { e.observer = fn }
}

// NewExtractor returns an Extractor. A nil logger disables logging.
func NewExtractor(logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads r as contentType. The only error returned matches ErrUnsupportedFormat.
func (e *Extractor) Extract(contentType string, r io.Reader) (Text, error) {
	return e.ExtractNamed("", contentType, r)
}

// ExtractNamed is Extract with a caller label (usually the file name) used in logs and reports.
func (e *Extractor) ExtractNamed(name, contentType string, r io.Reader) (Text, error) {
	text, _, err := e.ExtractReport(name, contentType, r)
	return text, err
}

// ExtractReport is ExtractNamed that also returns the Report sent to the observer.
func (e *Extractor) ExtractReport(name, contentType string, r io.Reader) (Text, Report, error) {
	rep := Report{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: contentType,
	}
	start := e.now()
	strategy, err := Select(contentType)
	if err != nil {
		rep.Status = StatusUnsupported
		rep.Cause = err
		e.logger.Info("unsupported content type",
			zap.String("id", rep.ID), zap.String("name", name), zap.String("content_type", contentType))
		e.notify(rep)
		return Text{}, rep, err
	}
	rep.Format = strategy.Format()

	cr := &countingReader{r: r}
	res := strategy.Extract(cr)
	rep.Bytes = cr.n
	rep.Duration = e.now().Sub(start)
	text := collapse(rep.Format, res)
	switch {
	case res.Failed():
		rep.Cause = res.Err
		rep.Status = StatusDegraded
		if text.Absent {
			rep.Status = StatusAbsent
		}
		e.logger.Warn("extraction failed",
			zap.String("id", rep.ID),
			zap.String("name", name),
			zap.String("format", rep.Format.String()),
			zap.Int64("bytes", rep.Bytes),
			zap.Error(res.Err),
		)
	case res.Text == "":
		rep.Status = StatusEmpty
		e.logger.Debug("extraction yielded no text", zap.String("id", rep.ID), zap.String("name", name))
	default:
		rep.Status = StatusOK
		rep.Chars = len([]rune(res.Text))
		e.logger.Debug("extracted text",
			zap.String("id", rep.ID),
			zap.String("name", name),
			zap.String("format", rep.Format.String()),
			zap.Int("chars", rep.Chars),
			zap.Duration("took", rep.Duration),
		)
	}
	e.notify(rep)
	return text, rep, nil
}

// ExtractFile extracts the file at path, deriving the content type from its
// name and leading bytes.
func (e *Extractor) ExtractFile(path string) (Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return Text{}, err
	}
	defer f.Close()
	ct, r := DetectReader(path, f)
	return e.ExtractNamed(filepath.Base(path), ct, r)
}

func (e *Extractor) notify(rep Report) {
	if e.observer != nil {
		e.observer(rep)
	}
}

// collapse maps a Result to the boundary convention: empty text for PDF,
// Word and plain text failures, absent for CSV failures.
func collapse(f Format, res Result) Text {
	if !res.Failed() {
		return Text{Value: res.Text}
	}
	if f == FormatCSV {
		return Text{Absent: true}
	}
	return Text{}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
