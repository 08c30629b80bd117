package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeevan-health/triage/internal/api"
	"github.com/jeevan-health/triage/internal/client"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/internal/offline"
	"github.com/jeevan-health/triage/internal/scheduler"
	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/mcp"
	"github.com/jeevan-health/triage/pkg/schema"
)

// runAgent starts the field agent: a local record store with a pending
// queue, a cron-driven sync poll and the operator MCP server on stdio.
func runAgent(args []string) {
	cfg := mustConfig()
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	fs.StringVar(&cfg.AgentDBPath, "db-path", cfg.AgentDBPath, "agent database path")
	fs.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "triage server base URL")
	fs.StringVar(&cfg.AgentAddr, "status-addr", cfg.AgentAddr, "listen address for the local status endpoint (empty disables)")
	fs.StringVar(&cfg.PollSchedule, "poll-schedule", cfg.PollSchedule, "cron spec of the sync poll")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "timeout for every server request")
	fs.StringVar(&cfg.Operator, "operator", cfg.Operator, "default operator name on saved records")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	logger, _ := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg.AgentDBPath)
	if err != nil {
		fatalf("%v", err)
	}
	defer db.Close()

	remote, err := client.New(client.Config{BaseURL: cfg.ServerURL, Timeout: cfg.RequestTimeout})
	if err != nil {
		fatalf("%v", err)
	}

	hub := streaming.NewMemoryHub()
	m := metrics.NewCollector("triage_agent")
	cache := offline.NewCache(db, remote, logger)
	reconciler := offline.NewReconciler(offline.Deps{
		Local:   offline.NewLocalStore(db),
		Remote:  remote,
		Hub:     hub,
		Metrics: m,
		Logger:  logger,
	})
	defer reconciler.Wait()

	poller, err := scheduler.NewPoller("sync", cfg.PollSchedule, func(ctx context.Context) {
		reconciler.Poll(ctx)
		if reconciler.Status() == schema.StatusOnline {
			if err := cache.Refresh(ctx); err != nil {
				logger.DebugContext(ctx, "cache refresh failed", slog.String("error", err.Error()))
			}
		}
	}, logger)
	if err != nil {
		fatalf("%v", err)
	}
	if err := poller.Start(ctx); err != nil {
		fatalf("%v", err)
	}
	defer func() { _ = poller.Stop() }()

	if cfg.AgentAddr != "" {
		status := &http.Server{
			Addr: cfg.AgentAddr,
			Handler: api.NewAgentServer(api.AgentDeps{
				Reconciler: reconciler,
				Hub:        hub,
				Metrics:    m,
				Logger:     logger,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("agent status endpoint listening", slog.String("addr", cfg.AgentAddr))
			if err := status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("agent status endpoint failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = status.Shutdown(shutdownCtx)
		}()
	}

	operator := mcp.NewOperatorServer(mcp.OperatorServerDeps{
		Catalog:    cache,
		Protocols:  cache,
		Reconciler: reconciler,
		Hub:        hub,
		Metrics:    m,
		Operator:   cfg.Operator,
		Logger:     logger,
	})
	logger.Info("field agent ready",
		slog.String("server", cfg.ServerURL), slog.String("db", cfg.AgentDBPath), slog.String("schedule", cfg.PollSchedule))
	if err := operator.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server stopped", slog.String("error", err.Error()))
	}
}
