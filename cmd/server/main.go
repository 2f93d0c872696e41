package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/campus/internal/activity"
	"github.com/p-n-ai/campus/internal/audit"
	"github.com/p-n-ai/campus/internal/campus"
	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/curriculum"
	"github.com/p-n-ai/campus/internal/enrollment"
	"github.com/p-n-ai/campus/internal/platform/cache"
	"github.com/p-n-ai/campus/internal/platform/config"
	"github.com/p-n-ai/campus/internal/platform/database"
	"github.com/p-n-ai/campus/internal/platform/logging"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
	"github.com/p-n-ai/campus/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := build(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.Storage, "cache", cfg.HasCache())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// stores groups the backends selected by CAMPUS_STORAGE.
type stores struct {
	catalog     catalog.Store
	progress    progress.Store
	enrollments enrollment.Store
	profiles    profile.Store
	events      audit.Logger
}

// build wires the stores, the application and the HTTP handler. cleanup
// releases the connections it opened.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	var opts []server.Option

	st := stores{
		catalog:     catalog.NewMemoryStore(),
		progress:    progress.NewMemoryStore(),
		enrollments: enrollment.NewMemoryStore(),
		profiles:    profile.NewMemoryStore(),
		events:      audit.NewMemory(),
	}
	if cfg.Storage == config.StoragePostgres {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, func() {}, fmt.Errorf("connecting database: %w", err)
		}
		closers = append(closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("applying schema: %w", err)
		}
		st = stores{
			catalog:     catalog.NewPostgresStore(db.Pool),
			progress:    progress.NewPostgresStore(db.Pool),
			enrollments: enrollment.NewPostgresStore(db.Pool),
			profiles:    profile.NewPostgresStore(db.Pool),
			events:      audit.NewPostgres(db.Pool),
		}
		opts = append(opts, server.WithCheck("database", db.HealthCheck))
	}

	var sessions activity.SessionStore = activity.NewMemorySessionStore()
	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			logger.Warn("cache unavailable, continuing without it", "error", err)
		} else {
			closers = append(closers, func() { c.Close() })
			st.catalog = catalog.NewCachedStore(st.catalog, c, cfg.Cache.UnitTTL)
			sessions = activity.NewRedisSessionStore(c, cfg.Player.SessionTTL)
			opts = append(opts, server.WithCheck("cache", c.HealthCheck))
		}
	}

	if cfg.CurriculumPath != "" {
		loader, err := curriculum.NewLoader(cfg.CurriculumPath)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("loading curriculum: %w", err)
		}
		if err := loader.Seed(ctx, st.catalog); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("seeding curriculum: %w", err)
		}
	}

	app := campus.New(campus.Deps{
		Catalog:     catalog.New(st.catalog),
		Progress:    st.progress,
		Enrollments: st.enrollments,
		Profiles:    st.profiles,
		Events:      st.events,
	}, campus.Options{
		Timeouts:   cfg.Timeouts,
		TeacherIDs: cfg.TeacherIDs,
	})

	player := activity.NewPlayer(sessions, logger)
	opts = append(opts,
		server.WithLogger(logger),
		server.WithReporter(logging.NewReporter(logger, 0)),
	)
	return server.New(app, player, opts...).Handler(), cleanup, nil
}
