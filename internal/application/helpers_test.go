package application_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/application"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
)

// --- Mock implementations ---

var errStoreDown = errors.New("store unavailable")

type memBlobStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
	failPut bool
	// failOnce makes the next Get of each listed key fail.
	failOnce map[string]bool
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{data: make(map[string]string)}
}

func (m *memBlobStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", false, errStoreDown
	}
	if m.failOnce[key] {
		delete(m.failOnce, key)
		return "", false, errStoreDown
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBlobStore) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errStoreDown
	}
	m.data[key] = value
	return nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errStoreDown
	}
	delete(m.data, key)
	return nil
}

func (m *memBlobStore) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memBlobStore) failNextGet(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOnce == nil {
		m.failOnce = make(map[string]bool)
	}
	m.failOnce[key] = true
}

func (m *memBlobStore) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

type fakeSource struct {
	mu        sync.Mutex
	gate      chan struct{} // when set, ListTasks signals started and waits on it
	started   chan struct{}
	tasks     []model.Task
	err       error
	listCalls []model.Credentials
	updates   []model.StatusUpdate
	tests     []model.Credentials
}

func (f *fakeSource) ListTasks(_ context.Context, creds model.Credentials, _ model.TaskFilter) ([]model.Task, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, creds)
	tasks, err := f.tasks, f.err
	gate, started := f.gate, f.started
	f.gate = nil
	f.mu.Unlock()

	if gate != nil {
		close(started)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// holdNextList makes the next ListTasks block after reading its result until
// the returned release func is called. started is closed once it blocks.
func (f *fakeSource) holdNextList() (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	f.started = make(chan struct{})
	return f.started, func() { close(gate) }
}

func (f *fakeSource) setTasks(tasks []model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
}

func (f *fakeSource) UpdateStatus(_ context.Context, _ model.Credentials, update model.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return f.err
}

func (f *fakeSource) TestConnection(_ context.Context, creds model.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tests = append(f.tests, creds)
	return f.err
}

func (f *fakeSource) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func (f *fakeSource) lastCreds() model.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[len(f.listCalls)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixture struct {
	blobs     *memBlobStore
	notifier  *application.Notifier
	projects  *application.ProjectService
	selection *application.Selection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs := newMemBlobStore()
	notifier := application.NewNotifier()
	projects := application.NewProjectService(blobs, notifier, discardLogger())
	return &fixture{
		blobs:     blobs,
		notifier:  notifier,
		projects:  projects,
		selection: application.NewSelection(projects),
	}
}

func (f *fixture) create(t *testing.T, name string) model.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), application.ProjectInput{
		Name:       name,
		Token:      "secret_" + name + "_0123456789",
		DatabaseID: "db-" + name,
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return p
}

func ptr[T any](v T) *T {
	return &v
}
