package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/hyperjump/doctext/internal/cli"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/internal/storage"
)

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct database mode)")
	serverURL := fs.String("server", "", "query a running server at this URL instead of the database")
	limit := fs.Int("limit", 20, "number of records")
	offset := fs.Int("offset", 0, "records to skip")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(os.Args[2:])

	if *limit <= 0 || *offset < 0 {
		exitf("--limit must be positive and --offset not negative")
	}

	var records []*models.ExtractionRecord
	var err error
	if *serverURL != "" {
		records, err = historyViaHTTP(httpClient, *serverURL, *offset, *limit)
	} else {
		records, err = historyFromDatabase(*configPath, *offset, *limit)
	}
	if err != nil {
		exitf("Failed to list extractions: %v", err)
	}
	if err := cli.WriteHistory(os.Stdout, records, cli.ParseOutputFormat(*asJSON)); err != nil {
		exitf("Failed to write output: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct database mode)")
	serverURL := fs.String("server", "", "query a running server at this URL instead of the database")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(os.Args[2:])

	var status *models.StatusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(httpClient, *serverURL)
	} else {
		status, err = statusFromDatabase(*configPath)
	}
	if err != nil {
		exitf("Failed to get status: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, cli.ParseOutputFormat(*asJSON)); err != nil {
		exitf("Failed to write output: %v", err)
	}
}

func openHistory(configPath string) (storage.Storage, string, error) {
	cfg, _, err := loadConfigOrDefaults(configPath)
	if err != nil {
		return nil, "", err
	}
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Storage.DatabasePath, nil
}

func historyFromDatabase(configPath string, offset, limit int) ([]*models.ExtractionRecord, error) {
	store, _, err := openHistory(configPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.ListRecords(context.Background(), offset, limit)
}

func statusFromDatabase(configPath string) (*models.StatusResponse, error) {
	store, dbPath, err := openHistory(configPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		return nil, err
	}
	status := statusFromCounts(counts)
	if n, err := storage.DiskUsageBytes(dbPath); err == nil {
		status.DiskUsageBytes = n
	}
	return status, nil
}

func statusFromCounts(counts map[string]int64) *models.StatusResponse {
	status := &models.StatusResponse{ByStatus: counts}
	for _, n := range counts {
		status.Total += n
	}
	return status
}

func historyViaHTTP(client *http.Client, serverURL string, offset, limit int) ([]*models.ExtractionRecord, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var out struct {
		Extractions []*models.ExtractionRecord `json:"extractions"`
	}
	if err := getJSON(client, serverURL+"/api/v1/extractions?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Extractions, nil
}

func statusViaHTTP(client *http.Client, serverURL string) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := getJSON(client, serverURL+"/api/v1/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func getJSON(client *http.Client, endpoint string, v interface{}) error {
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("server request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, serverError(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid server response: %w", err)
	}
	return nil
}
