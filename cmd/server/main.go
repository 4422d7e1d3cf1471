package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/verdict/internal/api"
	"github.com/gyaneshwarpardhi/verdict/internal/config"
	"github.com/gyaneshwarpardhi/verdict/internal/engine"
	"github.com/gyaneshwarpardhi/verdict/internal/logging"
	"github.com/gyaneshwarpardhi/verdict/internal/metrics"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/service"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

func main() {
	// ── Load config ──────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("failed to build logger", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// ── Rule store ────────────────────────────────────────────────────────────
	st, err := store.NewStore(store.Options{Type: cfg.Store.Type, Path: cfg.Store.Path, Logger: logger})
	if err != nil {
		slog.Error("failed to open rule store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	rules := service.NewRules(st, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := seed(ctx, rules, cfg.Store.Seed); err != nil {
		slog.Error("failed to seed rules", "path", cfg.Store.Seed, "err", err)
		os.Exit(1)
	}
	if loaded, err := rules.List(ctx); err == nil {
		metrics.RulesLoaded.Set(float64(len(loaded)))
		slog.Info("rules loaded", "count", len(loaded), "store", cfg.Store.Type)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	if fs, ok := st.(*store.FileStore); ok && cfg.Store.Watch {
		fs.OnChange(func(reloaded []*rule.Rule) {
			metrics.RulesLoaded.Set(float64(len(reloaded)))
			slog.Info("rules hot-reloaded", "count", len(reloaded))
		})
		stopWatch, err := fs.Watch()
		if err != nil {
			slog.Warn("rules watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	eng := engine.New(ctx, st, logger, cfg.Engine)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(rules, eng, logger, cfg.HTTP, cfg.Engine.BatchMaxSize)
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
}

// seed imports the rule document at path when the store is empty.
func seed(ctx context.Context, rules *service.Rules, path string) error {
	if path == "" {
		return nil
	}
	existing, err := rules.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Info("store not empty, skipping seed", "rules", len(existing))
		return nil
	}
	docs, err := store.ReadRulesFile(path)
	if err != nil {
		return err
	}
	n, err := rules.Import(ctx, docs, true)
	if err != nil {
		return err
	}
	slog.Info("rules seeded", "count", n, "path", path)
	return nil
}
