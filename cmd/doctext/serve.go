package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/server"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/internal/watcher"
	"github.com/hyperjump/doctext/pkg/utils"
)

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, inbox events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfigOrDefaults(*configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	diskPaths := []string{cfg.Storage.DatabasePath}
	if cfg.Watch.Inbox != "" {
		w, err := startInbox(ctx, cfg, store, logger)
		if err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		defer w.Stop()
		diskPaths = append(diskPaths, cfg.Watch.Outbox)
	}

	api := extract.NewExtractor(logger, extract.WithObserver(storage.NewRecorder(store, "api", logger).Observe))
	srv := server.NewServer(api, store, &cfg.Server, logger, diskPaths...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	waitForSignal()
	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	inbox := fs.String("inbox", "", "directory to watch (overrides watch.inbox)")
	outbox := fs.String("outbox", "", "directory for extracted text (overrides watch.outbox)")
	noHistory := fs.Bool("no-history", false, "do not record extractions")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfigOrDefaults(*configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	if err := applyWatchFlags(cfg, *inbox, *outbox); err != nil {
		exitf("%v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	var store storage.Storage
	if !*noHistory {
		s, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DatabasePath)
		if err != nil {
			logger.Warn("history disabled", zap.String("database_path", cfg.Storage.DatabasePath), zap.Error(err))
		} else {
			defer s.Close()
			store = s
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := startInbox(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to start inbox watcher", zap.Error(err))
	}
	defer w.Stop()
	logger.Info("watching inbox", zap.String("inbox", cfg.Watch.Inbox), zap.String("outbox", cfg.Watch.Outbox))

	waitForSignal()
	logger.Info("Shutting down...")
}

// applyWatchFlags overrides the configured inbox and outbox and checks that an
// inbox is set. Relative flag values are taken from the working directory.
func applyWatchFlags(cfg *config.Config, inbox, outbox string) error {
	if inbox != "" {
		cfg.Watch.Inbox = absPath(inbox)
	}
	if outbox != "" {
		cfg.Watch.Outbox = absPath(outbox)
	}
	if cfg.Watch.Inbox == "" {
		return errors.New("no inbox: set watch.inbox in the config or pass --inbox")
	}
	return cfg.Validate()
}

// startInbox starts the inbox watcher: settled files are extracted into the
// outbox and removed files lose their output. A nil store disables history.
func startInbox(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) (*watcher.Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []extract.Option
	if store != nil {
		opts = append(opts, extract.WithObserver(storage.NewRecorder(store, "watch", logger).Observe))
	}
	out := watcher.NewOutbox(cfg.Watch.Inbox, cfg.Watch.Outbox, extract.NewExtractor(logger, opts...), logger)
	w := watcher.NewWatcher(
		cfg.Watch.Inbox,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if err := out.Process(path); err != nil {
				logger.Warn("inbox extract failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := out.Remove(path); err != nil {
				logger.Warn("inbox remove output failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
		watcher.WithExclude(cfg.Watch.Outbox),
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	w.SyncExistingFiles()
	return w, nil
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
