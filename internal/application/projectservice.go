package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Blob keys of the persisted state.
const (
	ProjectsKey = "notion-projects"
	ActiveIDKey = "active-notion-project-id"
)

// ProjectInput carries the fields of a new project.
type ProjectInput struct {
	Name       string
	Token      string
	DatabaseID string
	Provider   model.Provider
}

// ProjectPatch carries the fields to change on an existing project. Nil
// fields are left untouched.
type ProjectPatch struct {
	Name       *string
	Token      *string
	DatabaseID *string
	Provider   *model.Provider
}

// ProjectService is the credential store. It persists the project list as one
// JSON blob and keeps the active pointer consistent with it: the first
// project becomes active, and deleting the active project clears the pointer.
//
// Reads never fail: a store failure degrades to an empty list. Writes are
// read-modify-write and refuse to run on a failed read, so a transient error
// or an undecryptable blob never overwrites the stored list. A failed write
// leaves the store untouched and is returned as ErrStoreUnavailable.
type ProjectService struct {
	blobs    driven.BlobStore
	pointer  activePointer
	notifier *Notifier
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes read-modify-write sequences inside this process. Other
	// processes sharing the database follow last-writer-wins.
	mu sync.Mutex
}

// NewProjectService creates a ProjectService. notifier may be nil.
func NewProjectService(blobs driven.BlobStore, notifier *Notifier, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		blobs:    blobs,
		pointer:  activePointer{blobs: blobs, logger: logger},
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns all projects in insertion order.
func (s *ProjectService) List(ctx context.Context) []model.Project {
	projects, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("reading projects failed, treating store as empty", "error", err)
		return []model.Project{}
	}
	return projects
}

// Get returns the project with the given id.
func (s *ProjectService) Get(ctx context.Context, id string) (model.Project, error) {
	if id == "" {
		return model.Project{}, ErrProjectNotFound
	}
	for _, p := range s.List(ctx) {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Project{}, ErrProjectNotFound
}

// Create validates and appends a new project. When it is the only project in
// the store afterwards, it becomes the active project.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (model.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Token = strings.TrimSpace(in.Token)
	in.DatabaseID = strings.TrimSpace(in.DatabaseID)
	if err := validateInput(in); err != nil {
		return model.Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	project := model.Project{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Token:      in.Token,
		DatabaseID: in.DatabaseID,
		Provider:   in.Provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	projects, err := s.load(ctx)
	if err != nil {
		return model.Project{}, s.storeError("create", err)
	}
	projects = append(projects, project)
	if err := s.save(ctx, projects); err != nil {
		return model.Project{}, s.storeError("create", err)
	}

	s.logger.Info("project created",
		"project_id", project.ID,
		"name", project.Name,
		"provider", project.Provider.Normalize(),
		"token", project.MaskedToken(),
	)

	if len(projects) == 1 {
		s.pointer.write(ctx, project.ID)
		s.notifier.Publish(TopicActive)
	}
	s.notifier.Publish(TopicProjects)

	return project, nil
}

// Update merges patch into the project with the given id and refreshes
// UpdatedAt. Fields set to empty strings are rejected.
func (s *ProjectService) Update(ctx context.Context, id string, patch ProjectPatch) (model.Project, error) {
	if err := validatePatch(patch); err != nil {
		return model.Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return model.Project{}, s.storeError("update", err)
	}
	idx := indexOf(projects, id)
	if idx < 0 {
		return model.Project{}, ErrProjectNotFound
	}

	p := projects[idx]
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Token != nil {
		p.Token = strings.TrimSpace(*patch.Token)
	}
	if patch.DatabaseID != nil {
		p.DatabaseID = strings.TrimSpace(*patch.DatabaseID)
	}
	if patch.Provider != nil {
		p.Provider = *patch.Provider
	}

	p.UpdatedAt = s.now().UTC()
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	projects[idx] = p
	if err := s.save(ctx, projects); err != nil {
		return model.Project{}, s.storeError("update", err)
	}

	s.logger.Info("project updated", "project_id", p.ID, "name", p.Name)
	s.notifier.Publish(TopicProjects)
	// Credentials of the active project may have changed; watchers compare
	// ids only, so this is a wake-up, not a selection change.
	s.notifier.Publish(TopicActive)

	return p, nil
}

// Delete removes the project with the given id and reports whether it
// existed. Deleting the active project clears the active pointer before
// Delete returns. On a store failure nothing changes and the pointer is
// left alone.
func (s *ProjectService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return false, s.storeError("delete", err)
	}
	idx := indexOf(projects, id)
	if idx < 0 {
		return false, nil
	}

	projects = append(projects[:idx], projects[idx+1:]...)
	if err := s.save(ctx, projects); err != nil {
		return false, s.storeError("delete", err)
	}

	if s.pointer.read(ctx) == id {
		s.pointer.clear(ctx)
		s.notifier.Publish(TopicActive)
	}
	s.notifier.Publish(TopicProjects)

	s.logger.Info("project deleted", "project_id", id, "remaining", len(projects))
	return true, nil
}

// load reads and decodes the project blob. A store error is returned. A blob
// that is not valid JSON reads as an empty list and may be overwritten; it
// can never be decoded, so re-creating records is the only recovery.
func (s *ProjectService) load(ctx context.Context) ([]model.Project, error) {
	raw, ok, err := s.blobs.Get(ctx, ProjectsKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []model.Project{}, nil
	}

	var projects []model.Project
	if err := json.Unmarshal([]byte(raw), &projects); err != nil {
		s.logger.Warn("projects blob is corrupt, treating store as empty", "error", err)
		return []model.Project{}, nil
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return projects, nil
}

// save replaces the project blob.
func (s *ProjectService) save(ctx context.Context, projects []model.Project) error {
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encoding projects: %w", err)
	}
	return s.blobs.Put(ctx, ProjectsKey, string(data))
}

// storeError logs a failed read-modify-write and wraps it for the caller.
func (s *ProjectService) storeError(op string, err error) error {
	s.logger.Error("project "+op+" skipped, store unavailable", "error", err)
	return fmt.Errorf("%s project: %w: %w", op, ErrStoreUnavailable, err)
}

func indexOf(projects []model.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func validateInput(in ProjectInput) error {
	var fields []string
	if in.Name == "" {
		fields = append(fields, "name is required")
	}
	if in.Token == "" {
		fields = append(fields, "token is required")
	}
	if in.DatabaseID == "" {
		fields = append(fields, "database id is required")
	}
	if !in.Provider.Valid() {
		fields = append(fields, fmt.Sprintf("unknown provider %q", in.Provider))
	}
	if fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validatePatch(patch ProjectPatch) error {
	var fields []string
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		fields = append(fields, "name must not be empty")
	}
	if patch.Token != nil && strings.TrimSpace(*patch.Token) == "" {
		fields = append(fields, "token must not be empty")
	}
	if patch.DatabaseID != nil && strings.TrimSpace(*patch.DatabaseID) == "" {
		fields = append(fields, "database id must not be empty")
	}
	if patch.Provider != nil && !patch.Provider.Valid() {
		fields = append(fields, fmt.Sprintf("unknown provider %q", *patch.Provider))
	}
	if fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}
