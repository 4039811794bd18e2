package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/internal/server"
	"github.com/hyperjump/doctext/internal/storage"
)

func TestFlagsFirst(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after files are moved first",
			args:     []string{"a.pdf", "--json"},
			expected: []string{"--json", "a.pdf"},
		},
		{
			name:     "value flags keep their value and file order is kept",
			args:     []string{"a.pdf", "--type", "pdf", "b.bin"},
			expected: []string{"--type", "pdf", "a.pdf", "b.bin"},
		},
		{
			name:     "inline value",
			args:     []string{"a.bin", "-type=docx"},
			expected: []string{"-type=docx", "a.bin"},
		},
		{
			name:     "stdin dash stays positional",
			args:     []string{"-", "--type", "txt"},
			expected: []string{"--type", "txt", "-"},
		},
		{
			name:     "double dash ends flags",
			args:     []string{"--json", "--", "--weird-name.txt"},
			expected: []string{"--json", "--weird-name.txt"},
		},
		{
			name:     "files only returns unchanged",
			args:     []string{"a.txt", "b.txt"},
			expected: []string{"a.txt", "b.txt"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flagsFirst(tt.args, "type", "config", "server")
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("flagsFirst() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
storage:
  database_path: "./history.db"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	assert.Equal(t, configPathCanon, resolvedCanon)
	assert.True(t, cfg.Debug, "debug should be true from cwd config.yaml")
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigOrDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists at the default path")
	}

	cfg, resolved, err := loadConfigOrDefaults(defaultConfigPath)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, extract.Extensions(), cfg.Watch.Extensions)

	_, _, err = loadConfigOrDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestExtractLocal(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Rent due monthly"), 0600))
	e := extract.NewExtractor(nil)

	resp, err := extractLocal(e, notes, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Rent due monthly", resp.Text)
	assert.Equal(t, "notes.txt", resp.Name)
	assert.Equal(t, extract.ContentTypePlainText, resp.ContentType)
	assert.Equal(t, string(extract.StatusOK), resp.Status)

	resp, err = extractLocal(e, stdinName, "csv", strings.NewReader("a,\xff\n"))
	require.NoError(t, err)
	assert.True(t, resp.Absent)
	assert.Equal(t, extract.ContentTypeCSV, resp.ContentType)

	resp, err = extractLocal(e, notes, "text/plain; charset=utf-8", nil)
	require.NoError(t, err)
	assert.Equal(t, extract.ContentTypePlainText, resp.ContentType)

	_, err = extractLocal(e, notes, "application/msword", nil)
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)

	_, err = extractLocal(e, filepath.Join(dir, "missing.txt"), "", nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractAll(t *testing.T) {
	extractOne := func(path string) (*models.ExtractResponse, error) {
		if path == "bad.xlsx" {
			return nil, extract.ErrUnsupportedFormat
		}
		return &models.ExtractResponse{Name: path, Text: path}, nil
	}
	var errOut bytes.Buffer
	results, failed := extractAll([]string{"a.txt", "bad.xlsx", "b.txt"}, extractOne, &errOut)
	assert.True(t, failed)
	require.Len(t, results, 2)
	assert.Equal(t, "a.txt", results[0].Name)
	assert.Equal(t, "b.txt", results[1].Name)
	assert.Contains(t, errOut.String(), "bad.xlsx")

	errOut.Reset()
	_, failed = extractAll([]string{"a.txt"}, extractOne, &errOut)
	assert.False(t, failed)
	assert.Empty(t, errOut.String())
}

func newTestAPI(t *testing.T) (*httptest.Server, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	e := extract.NewExtractor(nil, extract.WithObserver(storage.NewRecorder(store, "api", nil).Observe))
	srv := server.NewServer(e, store, &config.ServerConfig{MaxUploadBytes: 1 << 20}, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func TestExtractViaHTTP(t *testing.T) {
	ts, _ := newTestAPI(t)
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("Deposit: one month"), 0600))

	resp, err := extractViaHTTP(ts.Client(), ts.URL, notes, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Deposit: one month", resp.Text)
	assert.Equal(t, "notes.txt", resp.Name)
	assert.NotEmpty(t, resp.ID)

	resp, err = extractViaHTTP(ts.Client(), ts.URL, stdinName, "csv", strings.NewReader("x,y\n"))
	require.NoError(t, err)
	assert.Equal(t, "x,y\n", resp.Text)
	assert.Equal(t, extract.ContentTypeCSV, resp.ContentType)

	sheet := filepath.Join(dir, "sheet.xlsx")
	require.NoError(t, os.WriteFile(sheet, []byte("PK\x03\x04"), 0600))
	_, err = extractViaHTTP(ts.Client(), ts.URL, sheet, "", nil)
	assert.True(t, errors.Is(err, extract.ErrUnsupportedFormat), "got %v", err)

	_, err = extractViaHTTP(ts.Client(), "http://127.0.0.1:1", notes, "", nil)
	assert.Error(t, err)
}

func TestHistoryAndStatusViaHTTP(t *testing.T) {
	ts, store := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, store.SaveRecord(ctx, &models.ExtractionRecord{ID: "r1", ContentType: extract.ContentTypePDF, Status: "ok"}))
	require.NoError(t, store.SaveRecord(ctx, &models.ExtractionRecord{ID: "r2", ContentType: extract.ContentTypeCSV, Status: "absent"}))

	records, err := historyViaHTTP(ts.Client(), ts.URL, 0, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = historyViaHTTP(ts.Client(), ts.URL, 0, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	status, err := statusViaHTTP(ts.Client(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.Total)
	assert.Equal(t, int64(1), status.ByStatus["absent"])

	_, err = historyViaHTTP(ts.Client(), ts.URL, 0, -1)
	assert.Error(t, err, "server rejects a negative limit")
}

func TestStatusFromDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  database_path: \"./history.db\"\n"), 0600))

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRecord(context.Background(), &models.ExtractionRecord{ID: "r1", ContentType: "x", Status: "unsupported"}))
	require.NoError(t, store.Close())

	status, err := statusFromDatabase(configPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Total)
	assert.Positive(t, status.DiskUsageBytes)

	records, err := historyFromDatabase(configPath, 0, 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "unsupported", records[0].Status)
}

func TestApplyWatchFlags(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	assert.Error(t, applyWatchFlags(cfg, "", ""), "inbox is required")

	dir := t.TempDir()
	require.NoError(t, applyWatchFlags(cfg, filepath.Join(dir, "in"), filepath.Join(dir, "out")))
	assert.Equal(t, filepath.Join(dir, "in"), cfg.Watch.Inbox)
	assert.True(t, cfg.Watch.RecursiveOrDefault())

	assert.Error(t, applyWatchFlags(cfg, filepath.Join(dir, "same"), filepath.Join(dir, "same")))
}

func TestStartInbox(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Watch: config.WatchConfig{
		Inbox:  filepath.Join(dir, "in"),
		Outbox: filepath.Join(dir, "in", "out"),
	}}
	config.ApplyDefaults(cfg)
	require.NoError(t, os.MkdirAll(cfg.Watch.Inbox, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Watch.Inbox, "lease.txt"), []byte("Tenant: A"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Watch.Inbox, "rows.csv"), []byte("\xff"), 0600))

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := startInbox(ctx, cfg, store, nil)
	require.NoError(t, err)
	defer w.Stop()

	got, err := os.ReadFile(filepath.Join(cfg.Watch.Outbox, "lease.txt.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Tenant: A", string(got))
	assert.NoFileExists(t, filepath.Join(cfg.Watch.Outbox, "rows.csv.txt"))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["ok"])
	assert.Equal(t, int64(1), counts["absent"])

	records, err := store.ListRecords(ctx, 0, 10)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, "watch", r.Source)
	}
}

func TestServerRoutesRespond(t *testing.T) {
	ts, _ := newTestAPI(t)
	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
