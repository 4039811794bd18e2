package extract

import (
	"bufio"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes DetectContentType looks at.
const sniffLen = 3072

var extensionContentTypes = map[string]string{
	".pdf":  ContentTypePDF,
	".docx": ContentTypeWord,
	".txt":  ContentTypePlainText,
	".csv":  ContentTypeCSV,
}

// Extensions returns the file extensions with a known content type.
func Extensions() []string {
	return []string{".pdf", ".docx", ".txt", ".csv"}
}

// ContentTypeForExtension returns the identifier for ext (".pdf", "docx", ...),
// or "" when the extension is not recognized.
func ContentTypeForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return extensionContentTypes[ext]
}

// DetectContentType derives a content-type identifier for an upload. The file
// extension wins; otherwise head is sniffed and media-type parameters dropped.
// The result is not validated: unknown types are rejected by Select.
func DetectContentType(name string, head []byte) string {
	if ct := ContentTypeForExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return NormalizeContentType(mimetype.Detect(head).String())
}

// DetectReader is DetectContentType for a single-pass source. It peeks at the
// start of r and returns a reader that still yields every byte of r.
func DetectReader(name string, r io.Reader) (string, io.Reader) {
	if ct := ContentTypeForExtension(filepath.Ext(name)); ct != "" {
		return ct, r
	}
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	return NormalizeContentType(mimetype.Detect(head).String()), br
}

// NormalizeContentType strips parameters such as "; charset=utf-8" from a
// declared media type and lowercases it. Invalid input is returned trimmed.
func NormalizeContentType(declared string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.TrimSpace(declared)
	}
	return mt
}
