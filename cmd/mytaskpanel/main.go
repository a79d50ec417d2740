package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/fswatch"
	githubadapter "github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/github"
	notionadapter "github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/notion"
	sqliteadapter "github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/web"
	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/config"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defaults := cfg.DefaultCredentials()
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"encrypted", cfg.SecretKey != nil,
		"default_provider", defaults.Provider,
		"default_token", model.MaskSecret(defaults.Token),
		"strict_selection", cfg.StrictSelection,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire the blob store and the credential store on top of it.
	blobs, err := sqliteadapter.NewBlobRepo(db, cfg.SecretKey)
	if err != nil {
		return err
	}

	notifier := application.NewNotifier()
	projects := application.NewProjectService(blobs, notifier, slog.Default())
	selection := application.NewSelection(projects)

	// 6. Register task sources.
	registry := application.NewSourceRegistry()
	registry.Register(model.ProviderNotion, notionadapter.NewSource(notionadapter.Config{
		RateLimit: cfg.NotionRateLimit,
	}, slog.Default()))
	registry.Register(model.ProviderGitHub, githubadapter.NewClient(slog.Default()))

	// 7. Query cache and task service.
	cache := application.NewQueryCache(application.QueryCacheConfig{StaleTime: cfg.StaleTime}, slog.Default())
	tasks := application.NewTaskService(registry, cache, projects, selection, defaults, cfg.StrictSelection, slog.Default())

	// 8. Wake watchers when the CLI or another server writes the database.
	if cfg.DBPath != ":memory:" {
		dbWatcher, err := fswatch.New(cfg.DBPath, fswatch.DefaultDebounce, func() {
			notifier.Publish(application.TopicProjects)
			notifier.Publish(application.TopicActive)
		}, slog.Default())
		if err != nil {
			slog.Warn("database file watch unavailable, relying on polling", "error", err)
		} else {
			defer func() { _ = dbWatcher.Close() }()
			go dbWatcher.Run(ctx)
		}
	}

	// 9. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(projects, selection, tasks, notifier, httphandler.Intervals{
		Active: cfg.ActivePollInterval,
		List:   cfg.ListPollInterval,
	}, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterRoutes(mux, apiHandler)

	// 10. Create web handler and register GUI routes.
	webHandler := webhandler.NewHandler(projects, selection, tasks, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.Wrap(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// No WriteTimeout: /api/v1/events streams for the life of the client.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("mytaskpanel started",
		"listen_addr", cfg.ListenAddr,
		"projects", len(projects.List(ctx)),
		"active_project", selection.ActiveID(ctx),
	)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 12. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
