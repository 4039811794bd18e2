package extract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type reportSink struct {
	mu      sync.Mutex
	reports []Report
}

func (s *reportSink) add(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *reportSink) last(t *testing.T) Report {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.reports)
	return s.reports[len(s.reports)-1]
}

func newTestExtractor() (*Extractor, *reportSink, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &reportSink{}
	return NewExtractor(zap.New(core), WithObserver(sink.add)), sink, logs
}

func TestExtractor_success(t *testing.T) {
	e, sink, _ := newTestExtractor()
	text, err := e.ExtractNamed("lease.docx", ContentTypeWord, bytes.NewReader(minimalDocx("Hello", "world")))
	require.NoError(t, err)
	assert.Equal(t, Text{Value: "Hello world"}, text)
	assert.True(t, text.OK())

	rep := sink.last(t)
	assert.Equal(t, StatusOK, rep.Status)
	assert.Equal(t, FormatWord, rep.Format)
	assert.Equal(t, "lease.docx", rep.Name)
	assert.Equal(t, 11, rep.Chars)
	assert.Positive(t, rep.Bytes)
	assert.NotEmpty(t, rep.ID)
	assert.NoError(t, rep.Cause)
}

func TestExtractor_failureCollapsesToEmpty(t *testing.T) {
	inputs := map[string][]byte{
		ContentTypePDF:       []byte("corrupt"),
		ContentTypeWord:      []byte("corrupt"),
		ContentTypePlainText: []byte("bad\xffbyte"),
	}
	for ct, content := range inputs {
		t.Run(ct, func(t *testing.T) {
			e, sink, logs := newTestExtractor()
			text, err := e.Extract(ct, bytes.NewReader(content))
			require.NoError(t, err)
			assert.Equal(t, Text{}, text)
			assert.False(t, text.OK())

			rep := sink.last(t)
			assert.Equal(t, StatusDegraded, rep.Status)
			assert.Error(t, rep.Cause)

			warned := logs.FilterMessage("extraction failed").All()
			require.Len(t, warned, 1)
			assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
			assert.Contains(t, warned[0].ContextMap(), "error")
		})
	}
}

func TestExtractor_csvFailureIsAbsent(t *testing.T) {
	e, sink, _ := newTestExtractor()
	text, err := e.Extract(ContentTypeCSV, strings.NewReader("a,b\n\xfe,2\n"))
	require.NoError(t, err)
	assert.True(t, text.Absent)
	assert.False(t, text.OK())
	assert.NotEqual(t, Text{}, text, "absent must differ from empty text")

	rep := sink.last(t)
	assert.Equal(t, StatusAbsent, rep.Status)
	assert.True(t, errors.Is(rep.Cause, ErrInvalidUTF8))
}

func TestExtractor_emptyText(t *testing.T) {
	e, sink, _ := newTestExtractor()
	text, err := e.Extract(ContentTypePDF, bytes.NewReader(buildPDF(graphicsPage())))
	require.NoError(t, err)
	assert.Equal(t, Text{}, text)
	assert.Equal(t, StatusEmpty, sink.last(t).Status)
}

func TestExtractor_unsupported(t *testing.T) {
	e, sink, _ := newTestExtractor()
	_, err := e.Extract("application/msword", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	rep := sink.last(t)
	assert.Equal(t, StatusUnsupported, rep.Status)
	assert.Zero(t, rep.Bytes, "unsupported input must not be read")
}

func TestExtractor_nilLogger(t *testing.T) {
	e := NewExtractor(nil)
	text, err := e.Extract(ContentTypePlainText, strings.NewReader("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text.Value)
}

func TestExtractor_concurrent(t *testing.T) {
	e, _, _ := newTestExtractor()
	content := buildPDF(textPage("Alpha"), textPage("Bravo"))
	var wg sync.WaitGroup
	results := make([]Text, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Extract(ContentTypePDF, bytes.NewReader(content))
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, "AlphaBravo", r.Value)
	}
}

func TestExtractor_ExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("File content"), 0600))

	e, sink, _ := newTestExtractor()
	text, err := e.ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "File content", text.Value)
	assert.Equal(t, "notes.txt", sink.last(t).Name)

	_, err = e.ExtractFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	xlsx := filepath.Join(dir, "sheet.xlsx")
	require.NoError(t, os.WriteFile(xlsx, []byte("PK\x03\x04"), 0600))
	_, err = e.ExtractFile(xlsx)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
