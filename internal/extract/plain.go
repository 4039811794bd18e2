package extract

import (
	"fmt"
	"unicode/utf8"
)

// extractPlain returns content unchanged when it is valid UTF-8.
// Plain text and CSV share it; CSV is not split into rows or columns.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w at byte %d", ErrInvalidUTF8, firstInvalidUTF8(content))
	}
	return string(content), nil
}

func firstInvalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
