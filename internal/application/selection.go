package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// activePointer reads and writes the raw active-id blob. Failures are logged
// and read as "no selection".
type activePointer struct {
	blobs  driven.BlobStore
	logger *slog.Logger
}

func (p activePointer) read(ctx context.Context) string {
	id, ok, err := p.blobs.Get(ctx, ActiveIDKey)
	if err != nil {
		p.logger.Warn("reading active project failed, treating as unset", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func (p activePointer) write(ctx context.Context, id string) {
	if err := p.blobs.Put(ctx, ActiveIDKey, id); err != nil {
		p.logger.Error("writing active project failed", "error", err, "project_id", id)
	}
}

func (p activePointer) clear(ctx context.Context) {
	if err := p.blobs.Delete(ctx, ActiveIDKey); err != nil {
		p.logger.Error("clearing active project failed", "error", err)
	}
}

// Selection is the active project pointer. It never mutates the project
// list, and a pointer whose project no longer exists reads as no selection.
type Selection struct {
	projects *ProjectService
	pointer  activePointer
	notifier *Notifier
	logger   *slog.Logger
}

// NewSelection creates a Selection over the same store as projects.
func NewSelection(projects *ProjectService) *Selection {
	return &Selection{
		projects: projects,
		pointer:  projects.pointer,
		notifier: projects.notifier,
		logger:   projects.logger,
	}
}

// ActiveID returns the active project id, or "" when nothing is selected or
// the pointer references a missing project.
func (s *Selection) ActiveID(ctx context.Context) string {
	p := s.ActiveProject(ctx)
	if p == nil {
		return ""
	}
	return p.ID
}

// ActiveProject returns the active project, or nil.
func (s *Selection) ActiveProject(ctx context.Context) *model.Project {
	id := s.pointer.read(ctx)
	if id == "" {
		return nil
	}
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		s.logger.Debug("active pointer references a missing project", "project_id", id)
		return nil
	}
	return &p
}

// SetActiveID points the selection at id. The project must exist.
func (s *Selection) SetActiveID(ctx context.Context, id string) error {
	// Held so a concurrent Delete cannot remove the project between the
	// existence check and the pointer write.
	s.projects.mu.Lock()
	defer s.projects.mu.Unlock()

	if _, err := s.projects.Get(ctx, id); err != nil {
		return err
	}
	if s.pointer.read(ctx) == id {
		return nil
	}

	s.pointer.write(ctx, id)
	s.logger.Info("active project changed", "project_id", id)
	s.notifier.Publish(TopicActive)
	return nil
}

// ClearActiveID removes the selection.
func (s *Selection) ClearActiveID(ctx context.Context) {
	s.projects.mu.Lock()
	defer s.projects.mu.Unlock()

	if s.pointer.read(ctx) == "" {
		return
	}
	s.pointer.clear(ctx)
	s.logger.Info("active project cleared")
	s.notifier.Publish(TopicActive)
}
