// Package notion implements the TaskSource port against Notion databases
// using the notionapi client.
package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jomei/notionapi"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TaskSource = (*Source)(nil)

// maxPageSize is the largest page a database query may request.
const maxPageSize = 100

// Config tunes a Source.
type Config struct {
	// RateLimit is the per-token request rate in requests per second.
	RateLimit float64
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// Transport is the base transport; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Source lists and updates tasks stored as pages of a Notion database.
// Clients are created lazily per token and reused.
type Source struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*notionapi.Client
}

// NewSource creates a Notion task source.
func NewSource(cfg Config, logger *slog.Logger) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Source{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*notionapi.Client),
	}
}

func (s *Source) clientFor(token string) *notionapi.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[token]; ok {
		return c
	}
	httpClient := &http.Client{
		Transport: newTransport(s.cfg.Transport, s.cfg.RateLimit),
		Timeout:   s.cfg.Timeout,
	}
	c := notionapi.NewClient(notionapi.Token(token), notionapi.WithHTTPClient(httpClient))
	s.clients[token] = c
	return c
}

// ListTasks queries the database named by creds.DatabaseID. A status filter
// is built from the database schema; when Notion rejects it with a 400 (for
// example, the value is not one of the property's options) the query is
// retried unfiltered.
func (s *Source) ListTasks(ctx context.Context, creds model.Credentials, filter model.TaskFilter) ([]model.Task, error) {
	if creds.DatabaseID == "" {
		return nil, errors.New("database id is required")
	}

	client := s.clientFor(creds.Token)
	dbID := notionapi.DatabaseID(creds.DatabaseID)
	limit := filter.EffectiveLimit()
	pageSize := min(limit, maxPageSize)

	req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
	if filter.Status != "" {
		if schema := s.schema(ctx, client, dbID); schema == nil {
			s.logger.Warn("could not fetch database schema, listing without filter", "database_id", creds.DatabaseID)
		} else if f := BuildStatusFilter(schema, filter.Status); f != nil {
			req.Filter = f
		} else {
			s.logger.Warn("no status property in database schema", "database_id", creds.DatabaseID)
		}
	}

	resp, err := client.Database.Query(ctx, dbID, req)
	if err != nil && req.Filter != nil && statusCode(err) == http.StatusBadRequest {
		s.logger.Warn("status filter rejected, listing all tasks",
			"status_filter", filter.Status,
			"database_id", creds.DatabaseID,
			"error", remoteMessage(err),
		)
		resp, err = client.Database.Query(ctx, dbID, &notionapi.DatabaseQueryRequest{PageSize: pageSize})
	}
	if err != nil {
		return nil, fmt.Errorf("querying notion database %s: %w", creds.DatabaseID, toRemote(err))
	}

	tasks := make([]model.Task, 0, len(resp.Results))
	for _, page := range resp.Results {
		tasks = append(tasks, mapPage(page))
	}
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}

	s.logger.Debug("notion query", "database_id", creds.DatabaseID, "count", len(tasks), "has_more", resp.HasMore)
	return tasks, nil
}

// UpdateStatus sets the status property of a page. Status-typed properties
// are tried first, then select-typed ones.
func (s *Source) UpdateStatus(ctx context.Context, creds model.Credentials, update model.StatusUpdate) error {
	client := s.clientFor(creds.Token)
	pageID := notionapi.PageID(update.PageID)
	name := update.EffectivePropertyName()

	_, err := client.Page.Update(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			name: &notionapi.StatusProperty{Type: "status", Status: notionapi.Status{Name: update.Status}},
		},
	})
	if err == nil {
		s.logger.Info("updated notion page status", "page_id", update.PageID, "status", update.Status)
		return nil
	}

	s.logger.Debug("status update rejected, retrying as select", "page_id", update.PageID, "error", remoteMessage(err))
	_, err = client.Page.Update(ctx, pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			name: &notionapi.SelectProperty{Type: "select", Select: notionapi.Option{Name: update.Status}},
		},
	})
	if err != nil {
		return fmt.Errorf("updating notion page %s status: %w", update.PageID, toRemote(err))
	}

	s.logger.Info("updated notion page status (select)", "page_id", update.PageID, "status", update.Status)
	return nil
}

// TestConnection reads the bot user the token belongs to.
func (s *Source) TestConnection(ctx context.Context, creds model.Credentials) error {
	if _, err := s.clientFor(creds.Token).User.Me(ctx); err != nil {
		return fmt.Errorf("notion connection test: %w", toRemote(err))
	}
	return nil
}

// schema fetches the property types of a database, or nil on failure.
func (s *Source) schema(ctx context.Context, client *notionapi.Client, id notionapi.DatabaseID) Schema {
	db, err := client.Database.Get(ctx, id)
	if err != nil {
		s.logger.Warn("fetching database schema failed", "database_id", string(id), "error", remoteMessage(err))
		return nil
	}
	schema := schemaOf(db)
	if len(schema) == 0 {
		return nil
	}
	return schema
}

// toRemote converts a notionapi error payload into a driven.RemoteError so
// callers can surface Notion's own message.
func toRemote(err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return &driven.RemoteError{
			Status:  apiErr.Status,
			Code:    string(apiErr.Code),
			Message: apiErr.Message,
		}
	}
	return err
}

func statusCode(err error) int {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func remoteMessage(err error) string {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
