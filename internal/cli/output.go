// Package cli provides output writers for the doctext command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/doctext/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps the --json flag to an OutputFormat.
func ParseOutputFormat(asJSON bool) OutputFormat {
	if asJSON {
		return OutputJSON
	}
	return OutputText
}

// WriteExtractions writes extraction results to w. Text output is the
// extracted text of every result that has any, joined by newlines; empty and
// absent results contribute nothing.
func WriteExtractions(w io.Writer, results []*models.ExtractResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, nonNil(results))
	}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Absent || r.Text == "" {
			continue
		}
		texts = append(texts, r.Text)
	}
	if len(texts) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(w, strings.Join(texts, "\n"))
	return err
}

// WriteHistory writes extraction records to w, newest first as given.
func WriteHistory(w io.Writer, records []*models.ExtractionRecord, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, nonNil(records))
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No extractions recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tFORMAT\tNAME\tBYTES\tCHARS\tSOURCE\tCAUSE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			dash(r.Format),
			dash(Truncate(r.Name, 40)),
			r.Bytes,
			r.Chars,
			dash(r.Source),
			Truncate(r.Cause, 60),
		)
	}
	return tw.Flush()
}

// WriteStatus writes history counts to w.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Extractions: %d\n", status.Total)
	for _, s := range []string{"ok", "empty", "degraded", "absent", "unsupported"} {
		if n := status.ByStatus[s]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", s+":", n)
		}
	}
	if status.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(status.DiskUsageBytes))
	}
	return nil
}

// Truncate shortens s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
