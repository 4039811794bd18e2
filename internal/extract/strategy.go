package extract

import (
	"errors"
	"fmt"
	"io"
)

// Failure causes carried by Result.Err.
var (
	ErrRead        = errors.New("read source")
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
	ErrMalformed   = errors.New("malformed document")
)

// Result is the outcome of one extraction. Err is nil on success and holds
// the original cause otherwise; Text is empty whenever Err is set.
type Result struct {
	Text string
	Err  error
}

// Failed reports whether extraction failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

func failed(err error) Result {
	return Result{Err: err}
}

// Strategy converts a byte source of one known format into text.
// Strategies hold no state and may be shared between goroutines.
type Strategy struct {
	format  Format
	extract func(content []byte) (string, error)
}

// Select returns the strategy bound to contentType, or an error matching
// ErrUnsupportedFormat. It is the only place content types are validated.
func Select(contentType string) (Strategy, error) {
	f, err := ParseFormat(contentType)
	if err != nil {
		return Strategy{}, err
	}
	return f.Strategy(), nil
}

// Strategy returns the strategy for f. It panics on an invalid Format.
func (f Format) Strategy() Strategy {
	switch f {
	case FormatPDF:
		return Strategy{format: f, extract: extractPDF}
	case FormatWord:
		return Strategy{format: f, extract: extractDOCX}
	case FormatPlainText:
		return Strategy{format: f, extract: extractPlain}
	case FormatCSV:
		return Strategy{format: f, extract: extractPlain}
	default:
		panic(fmt.Sprintf("extract: no strategy for %v", f))
	}
}

// Format returns the format the strategy handles.
func (s Strategy) Format() Format {
	return s.format
}

// Extract reads r to the end once and returns the extracted text.
// Failures are reported through Result.Err, never as a panic.
func (s Strategy) Extract(r io.Reader) (res Result) {
	if s.extract == nil {
		return failed(fmt.Errorf("%w: zero strategy", ErrMalformed))
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrRead, err))
	}
	defer func() {
		if p := recover(); p != nil {
			res = failed(fmt.Errorf("%w: %s: %v", ErrMalformed, s.format, p))
		}
	}()
	text, err := s.extract(content)
	if err != nil {
		return failed(err)
	}
	return Result{Text: text}
}
