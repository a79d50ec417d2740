package client

import (
	"context"
	"net/url"
	"strconv"

	httphandler "github.com/ericfisherdev/mytaskpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// ListTasks fetches tasks from the server's task endpoint using creds as the
// override headers.
func (c *Client) ListTasks(ctx context.Context, creds model.Credentials, filter model.TaskFilter) ([]model.Task, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status_filter", filter.Status)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var res httphandler.TaskListResponse
	if err := c.get(ctx, c.endpoint("/api/notion/tasks", query), creds, &res); err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		tasks = append(tasks, httphandler.FromTaskResponse(t))
	}
	return tasks, nil
}

// UpdateStatus moves a task to a new status on the server.
func (c *Client) UpdateStatus(ctx context.Context, creds model.Credentials, update model.StatusUpdate) error {
	var res httphandler.UpdateStatusResponse
	return c.post(ctx, c.endpoint("/api/notion/update-status", nil), creds, httphandler.UpdateStatusRequest{
		PageID:             update.PageID,
		Status:             update.Status,
		StatusPropertyName: update.PropertyName,
	}, &res)
}

// TestConnection asks the server to verify creds. A rejected token comes back
// as a 200 with connected=false and is returned as a *driven.RemoteError.
func (c *Client) TestConnection(ctx context.Context, creds model.Credentials) error {
	var res httphandler.ConnectionResponse
	if err := c.get(ctx, c.endpoint("/api/notion/test-connection", nil), creds, &res); err != nil {
		return err
	}
	if !res.Connected {
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		return &driven.RemoteError{Message: msg}
	}
	return nil
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (httphandler.HealthResponse, error) {
	var res httphandler.HealthResponse
	err := c.get(ctx, c.endpoint("/api/v1/health", nil), model.Credentials{}, &res)
	return res, err
}
