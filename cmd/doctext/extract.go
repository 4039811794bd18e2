package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/doctext/internal/cli"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/pkg/utils"
)

// stdinName is the file argument that reads the document from standard input.
const stdinName = "-"

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	typeFlag := fs.String("type", "", "content type or extension applied to every file")
	asJSON := fs.Bool("json", false, "print JSON")
	serverURL := fs.String("server", "", "extract through a running server at this URL")
	noHistory := fs.Bool("no-history", false, "do not record extractions")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(flagsFirst(os.Args[2:], "config", "type", "server"))

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: doctext extract [flags] <file>...")
		fs.PrintDefaults()
		os.Exit(1)
	}

	var extractOne func(path string) (*models.ExtractResponse, error)
	if *serverURL != "" {
		extractOne = func(path string) (*models.ExtractResponse, error) {
			return extractViaHTTP(httpClient, *serverURL, path, *typeFlag, os.Stdin)
		}
	} else {
		cfg, _, err := loadConfigOrDefaults(*configPath)
		if err != nil {
			exitf("Failed to load config: %v", err)
		}
		logger, err := utils.NewCLILogger(cfg.Debug || *debug)
		if err != nil {
			exitf("Failed to create logger: %v", err)
		}
		defer logger.Sync()

		var opts []extract.Option
		if !*noHistory {
			store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath)
			if err != nil {
				logger.Warn("history disabled", zap.String("database_path", cfg.Storage.DatabasePath), zap.Error(err))
			} else {
				defer store.Close()
				opts = append(opts, extract.WithObserver(storage.NewRecorder(store, "cli", logger).Observe))
			}
		}
		e := extract.NewExtractor(logger, opts...)
		extractOne = func(path string) (*models.ExtractResponse, error) {
			return extractLocal(e, path, *typeFlag, os.Stdin)
		}
	}

	results, failed := extractAll(files, extractOne, os.Stderr)
	if err := cli.WriteExtractions(os.Stdout, results, cli.ParseOutputFormat(*asJSON)); err != nil {
		exitf("Failed to write output: %v", err)
	}
	if failed {
		os.Exit(1)
	}
}

// extractAll runs extractOne over files in order. Errors are reported to
// errOut and skipped; failed reports whether any occurred.
func extractAll(files []string, extractOne func(string) (*models.ExtractResponse, error), errOut io.Writer) (results []*models.ExtractResponse, failed bool) {
	results = make([]*models.ExtractResponse, 0, len(files))
	for _, path := range files {
		resp, err := extractOne(path)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed = true
			continue
		}
		results = append(results, resp)
	}
	return results, failed
}

// contentTypeFor resolves the identifier for a document: an explicit override
// (identifier or extension) wins, otherwise it is detected from name and content.
func contentTypeFor(override, name string, r io.Reader) (string, io.Reader) {
	if override != "" {
		if ct := extract.ContentTypeForExtension(override); ct != "" {
			return ct, r
		}
		return extract.NormalizeContentType(override), r
	}
	return extract.DetectReader(name, r)
}

// extractLocal extracts the file at path ("-" reads stdin) in-process.
func extractLocal(e *extract.Extractor, path, override string, stdin io.Reader) (*models.ExtractResponse, error) {
	var src io.Reader
	name := filepath.Base(path)
	if path == stdinName {
		src, name = stdin, ""
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}
	contentType, r := contentTypeFor(override, name, src)
	text, rep, err := e.ExtractReport(name, contentType, r)
	if err != nil {
		return nil, err
	}
	return &models.ExtractResponse{
		ID:          rep.ID,
		Name:        name,
		ContentType: contentType,
		Status:      string(rep.Status),
		Text:        text.Value,
		Absent:      text.Absent,
	}, nil
}

// extractViaHTTP uploads the file at path to a doctext server as multipart form data.
func extractViaHTTP(client *http.Client, serverURL, path, override string, stdin io.Reader) (*models.ExtractResponse, error) {
	var src io.Reader
	name := filepath.Base(path)
	if path == stdinName {
		src, name = stdin, "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := serverURL + "/api/v1/extract"
	if override != "" {
		endpoint += "?type=" + url.QueryEscape(override)
	}
	resp, err := client.Post(endpoint, mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("server request failed (is the server running at %s?): %w", serverURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out models.ExtractResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("invalid server response: %w", err)
		}
		return &out, nil
	case http.StatusUnsupportedMediaType:
		return nil, fmt.Errorf("%w (server: %s)", extract.ErrUnsupportedFormat, serverError(resp.Body))
	default:
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, serverError(resp.Body))
	}
}

// serverError returns the "error" field of a JSON error body, or the raw body.
func serverError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if len(data) == 0 {
		return "empty response"
	}
	return string(bytes.TrimSpace(data))
}
