package application

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjectNotFound is returned when no project has the requested id.
	ErrProjectNotFound = errors.New("project not found")

	// ErrStoreUnavailable is returned by a project write that could not read
	// or replace the stored list. The store is left as it was.
	ErrStoreUnavailable = errors.New("project store unavailable")

	// ErrQueryDisabled is returned by a query that is not enabled: no
	// explicit enablement was given and no project is active.
	ErrQueryDisabled = errors.New("query disabled: no active project")

	// ErrNoActiveProject is returned in strict selection mode when projects
	// exist but none is active.
	ErrNoActiveProject = errors.New("no active project selected")

	// ErrTokenNotConfigured is returned when neither an override nor the
	// server defaults provide an API token.
	ErrTokenNotConfigured = errors.New("Notion API key not configured")

	// ErrDatabaseNotConfigured is returned when neither an override nor the
	// server defaults provide a database id.
	ErrDatabaseNotConfigured = errors.New("Notion database ID not configured")

	// ErrUnknownProvider is returned when no task source is registered for
	// a project's provider.
	ErrUnknownProvider = errors.New("unknown task provider")
)

// ValidationError reports input fields rejected before persistence.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid project: %s", strings.Join(e.Fields, ", "))
}

// IsConfigurationError reports whether err means the request lacked usable
// credentials rather than the remote call failing.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrTokenNotConfigured) ||
		errors.Is(err, ErrDatabaseNotConfigured) ||
		errors.Is(err, ErrNoActiveProject) ||
		errors.Is(err, ErrUnknownProvider)
}
