// Package main is the doctext CLI entry point.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/doctext/internal/config"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/doctext/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefaults is loadConfig for commands that work without a config
// file: a missing file at the default path yields the built-in defaults and an
// empty resolved path.
func loadConfigOrDefaults(path string) (*config.Config, string, error) {
	cfg, resolved, err := loadConfig(path)
	if err == nil {
		return cfg, resolved, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, "", nil
	}
	return nil, "", err
}

// flagsFirst moves flags (and the values of flags named in valueFlags) ahead of
// positional arguments, keeping both groups in order. The flag package stops at
// the first positional, so "doctext extract a.pdf --json" would otherwise leave
// --json unparsed. Everything after "--" stays positional.
func flagsFirst(args []string, valueFlags ...string) []string {
	takesValue := make(map[string]bool, len(valueFlags))
	for _, f := range valueFlags {
		takesValue[f] = true
	}
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if takesValue[name] && !strings.Contains(name, "=") && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if len(flags) == 0 {
		return args
	}
	return append(flags, positional...)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "extract":
		runExtract()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("doctext version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*configPath); err == nil && !*force {
		exitf("Config already exists at %s (use --force to overwrite)", *configPath)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Save(*configPath, cfg); err != nil {
		exitf("Failed to write config: %v", err)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

func printUsage() {
	fmt.Println(`doctext - Extract plain text from PDF, Word, text and CSV documents

Usage:
  doctext extract [flags] <file>...   Print the text of one or more documents
  doctext server [flags]              Start the HTTP API (and inbox, if configured)
  doctext watch [flags]               Extract files dropped into an inbox directory
  doctext history [flags]             List recent extractions
  doctext status [flags]              Show extraction counts by status
  doctext init [flags]                Write a default config file
  doctext version                     Show version
  doctext help                        Show this help

Extract Flags:
  --type string      Content type or extension for every file (e.g. pdf, text/csv)
  --json             Print results as JSON instead of plain text
  --server string    Extract through a running server instead of locally
  --no-history       Do not record extractions in the history database
  --config string    Config file path (default: /usr/local/etc/doctext/config.yaml)
  --debug            Enable debug logging

Server / Watch Flags:
  --config string    Config file path
  --debug            Enable debug logging
  --inbox string     (watch) Directory to watch, overrides watch.inbox
  --outbox string    (watch) Directory for text output, overrides watch.outbox

History / Status Flags:
  --config string    Config file path (for direct database mode)
  --server string    Query a running server instead of the database
  --limit int        (history) Number of records (default: 20)
  --offset int       (history) Records to skip
  --json             Print JSON

Texts of several files are joined with a newline. Failed extractions print
nothing; use --json to see each file's status. A file whose type is not
supported is reported on stderr and makes the command exit non-zero.

Examples:
  doctext extract lease.pdf
  doctext extract --json rent.csv notes.txt
  doctext extract --type docx upload.bin
  cat notes.txt | doctext extract --type txt -
  doctext server
  doctext watch --inbox ~/Drop --outbox ~/Drop/text
  doctext history --limit 5`)
}
