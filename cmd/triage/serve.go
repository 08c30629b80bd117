package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jeevan-health/triage/internal/api"
	"github.com/jeevan-health/triage/internal/connectivity"
	"github.com/jeevan-health/triage/internal/engine"
	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/internal/store"
)

func runServe(args []string) {
	cfg := mustConfig()
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "TCP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "server database path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.ProbeHost, "probe-host", cfg.ProbeHost, "host resolved by the connectivity probe")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger, level := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		fatalf("%v", err)
	}
	defer db.Close()

	m := metrics.NewCollector("triage")
	svc, err := engine.New(engine.Deps{
		Graphs:      store.NewGraphs(db),
		Assessments: store.NewAssessments(db),
		Catalog:     store.NewCatalog(db),
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		fatalf("cannot build engine: %v", err)
	}

	handler := api.NewServer(api.Deps{
		Service: svc,
		Probe:   connectivity.NewProbe(cfg.ProbeHost, cfg.RequestTimeout),
		Metrics: m,
		Logger:  logger,
	}).Handler()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := writePID(); err != nil {
		logger.Warn("cannot write pid file", slog.String("error", err.Error()))
	}
	defer os.Remove(pidPath())

	go watchReload(ctx, cfg, level, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("triage server listening", slog.String("addr", cfg.ListenAddr), slog.String("db", cfg.DBPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fatalf("server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}
}

// openStore opens and migrates a libSQL database file, creating its
// directory if needed.
func openStore(ctx context.Context, path string) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	db, err := store.NewLibSQLStore("file:" + path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return db, nil
}

// watchReload re-reads the configuration on SIGHUP. Only the log level
// applies live; other changes are reported as needing a restart.
func watchReload(ctx context.Context, current Config, level *slog.LevelVar, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			next, err := loadConfig()
			if err != nil {
				logger.Warn("reload failed", slog.String("error", err.Error()))
				continue
			}
			d := diffConfigs(current, next)
			if d.LogLevelChanged {
				if lvl, err := logging.ParseLevel(next.LogLevel); err == nil {
					level.Set(lvl)
					logger.Info("log level changed", slog.String("level", next.LogLevel))
				}
			}
			if len(d.RestartNeeded) > 0 {
				logger.Warn("settings changed that need a restart", slog.Any("fields", d.RestartNeeded))
			}
			current = next
		}
	}
}

func writePID() error {
	if err := os.MkdirAll(triageDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}
