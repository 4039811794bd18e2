package config

import "github.com/hyperjump/doctext/internal/extract"

// DefaultMaxUploadBytes caps a single upload at 32 MiB.
const DefaultMaxUploadBytes = 32 << 20

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/doctext/data/history.db"
	}
	if cfg.Watch.Outbox == "" {
		cfg.Watch.Outbox = "/usr/local/var/doctext/out"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = extract.Extensions()
	}
	// Recursive defaults to true when unset (nil).
	if cfg.Watch.Inbox != "" && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
