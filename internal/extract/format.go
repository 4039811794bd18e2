// Package extract turns uploaded PDF, Word, plain-text and CSV documents into plain text.
package extract

import (
	"errors"
	"fmt"
)

// Content-type identifiers accepted by Select. Matching is exact.
const (
	ContentTypePDF       = "application/pdf"
	ContentTypeWord      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePlainText = "text/plain"
	ContentTypeCSV       = "text/csv"
)

// ErrUnsupportedFormat is returned for content types outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported format")

// UnsupportedFormatError carries the rejected content type. It matches ErrUnsupportedFormat.
type UnsupportedFormatError struct {
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedFormat, e.ContentType)
}

// Is reports whether target is ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// Format is one of the supported document formats. The zero value is invalid.
type Format int

const (
	FormatPDF Format = iota + 1
	FormatWord
	FormatPlainText
	FormatCSV
)

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatPDF, FormatWord, FormatPlainText, FormatCSV}
}

// ParseFormat maps a content-type identifier to its Format.
func ParseFormat(contentType string) (Format, error) {
	switch contentType {
	case ContentTypePDF:
		return FormatPDF, nil
	case ContentTypeWord:
		return FormatWord, nil
	case ContentTypePlainText:
		return FormatPlainText, nil
	case ContentTypeCSV:
		return FormatCSV, nil
	default:
		return 0, &UnsupportedFormatError{ContentType: contentType}
	}
}

// ContentType returns the identifier bound to f, or "" for an invalid format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return ContentTypePDF
	case FormatWord:
		return ContentTypeWord
	case FormatPlainText:
		return ContentTypePlainText
	case FormatCSV:
		return ContentTypeCSV
	default:
		return ""
	}
}

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatWord:
		return "docx"
	case FormatPlainText:
		return "txt"
	case FormatCSV:
		return "csv"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}
