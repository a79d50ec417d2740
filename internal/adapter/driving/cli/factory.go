// Package cli is the command-line driving adapter: cobra commands over the
// application services, printing with go-pretty tables.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/config"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
	"github.com/ericfisherdev/mytaskpanel/pkg/client"
)

// ServerEnv names the environment variable read when --server is not given.
const ServerEnv = "MYTASKPANEL_SERVER"

// Services are the application services a command runs against.
type Services struct {
	Projects  *application.ProjectService
	Selection *application.Selection
	Notifier  *application.Notifier
	Tasks     *application.TaskService
}

// Factory builds the services lazily from flags and configuration, so a
// command that fails flag validation never opens the database.
type Factory struct {
	// Server is the address of the mytaskpanel server that task commands
	// talk to.
	Server string
	// DBPath is the shared database file holding projects and the selection.
	DBPath   string
	LogLevel string

	Config     *config.Config
	HTTPClient *http.Client

	// OpenStore opens the blob store. Tests replace it with an in-memory
	// store; the default opens the sqlite database at DBPath.
	OpenStore func(ctx context.Context, dbPath string, key []byte) (driven.BlobStore, func() error, error)

	logger   *slog.Logger
	services *Services
	closers  []func() error
}

// NewFactory creates a Factory with defaults taken from cfg.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		DBPath:     cfg.DBPath,
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		OpenStore:  openSQLiteStore,
	}
}

// Logger returns the command logger, writing text to stderr at LogLevel.
func (f *Factory) Logger() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	f.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return f.logger
}

// ServerAddr returns the flag value, then the environment value.
func (f *Factory) ServerAddr() (string, error) {
	server := f.Server
	if server == "" {
		server = os.Getenv(ServerEnv)
	}
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set %s)", ServerEnv)
	}
	return server, nil
}

// Client returns an API client for the configured server.
func (f *Factory) Client() (*client.Client, error) {
	server, err := f.ServerAddr()
	if err != nil {
		return nil, err
	}
	return client.New(server, client.WithHTTPClient(f.HTTPClient)), nil
}

// Services opens the store and wires the application services once.
func (f *Factory) Services(ctx context.Context) (*Services, error) {
	if f.services != nil {
		return f.services, nil
	}
	logger := f.Logger()

	store, closeStore, err := f.OpenStore(ctx, f.DBPath, f.Config.SecretKey)
	if err != nil {
		return nil, err
	}
	f.closers = append(f.closers, closeStore)

	notifier := application.NewNotifier()
	projects := application.NewProjectService(store, notifier, logger)
	selection := application.NewSelection(projects)

	// Every provider goes through the server, which holds the tracker
	// transports.
	remote := remoteSource{f: f}
	registry := application.NewSourceRegistry()
	registry.Register(model.ProviderNotion, remote)
	registry.Register(model.ProviderGitHub, remote)

	cache := application.NewQueryCache(application.QueryCacheConfig{StaleTime: f.Config.StaleTime}, logger)
	tasks := application.NewTaskService(registry, cache, projects, selection, f.Config.DefaultCredentials(), f.Config.StrictSelection, logger)

	f.services = &Services{
		Projects:  projects,
		Selection: selection,
		Notifier:  notifier,
		Tasks:     tasks,
	}
	return f.services, nil
}

// Close releases everything Services opened.
func (f *Factory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}

func openSQLiteStore(ctx context.Context, dbPath string, key []byte) (driven.BlobStore, func() error, error) {
	db, err := sqlite.NewDB(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlite.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	repo, err := sqlite.NewBlobRepo(db, key)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

var _ driven.TaskSource = remoteSource{}

// remoteSource resolves the server on every call, so services built before
// --server was parsed still reach it.
type remoteSource struct {
	f *Factory
}

func (r remoteSource) ListTasks(ctx context.Context, creds model.Credentials, filter model.TaskFilter) ([]model.Task, error) {
	c, err := r.f.Client()
	if err != nil {
		return nil, err
	}
	return c.ListTasks(ctx, creds, filter)
}

func (r remoteSource) UpdateStatus(ctx context.Context, creds model.Credentials, update model.StatusUpdate) error {
	c, err := r.f.Client()
	if err != nil {
		return err
	}
	return c.UpdateStatus(ctx, creds, update)
}

func (r remoteSource) TestConnection(ctx context.Context, creds model.Credentials) error {
	c, err := r.f.Client()
	if err != nil {
		return err
	}
	return c.TestConnection(ctx, creds)
}
