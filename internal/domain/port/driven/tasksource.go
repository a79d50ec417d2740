package driven

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// TaskSource defines the driven port for a remote task tracker. Every call
// carries the credentials to use; implementations hold no per-user state.
type TaskSource interface {
	// ListTasks returns tasks from the scope named by creds.DatabaseID,
	// optionally filtered by status, capped at filter.EffectiveLimit().
	ListTasks(ctx context.Context, creds model.Credentials, filter model.TaskFilter) ([]model.Task, error)

	// UpdateStatus moves a single task to a new status.
	UpdateStatus(ctx context.Context, creds model.Credentials, update model.StatusUpdate) error

	// TestConnection verifies that creds.Token is accepted by the tracker.
	TestConnection(ctx context.Context, creds model.Credentials) error
}

// RemoteError is a structured error payload returned by a task tracker or by
// a remote mytaskpanel server. Message is human-readable and safe to display.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote error %d: %s", e.Status, e.Message)
}
