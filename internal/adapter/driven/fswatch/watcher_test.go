package fswatch_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mytaskpanel/internal/adapter/driven/fswatch"
)

func startWatcher(t *testing.T, dbPath string) *atomic.Int32 {
	t.Helper()
	var changes atomic.Int32

	w, err := fswatch.New(dbPath, 20*time.Millisecond, func() { changes.Add(1) }, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return &changes
}

func TestWatcher_DatabaseWritesNotify(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "panel.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("a"), 0o600))

	changes := startWatcher(t, dbPath)

	require.NoError(t, os.WriteFile(dbPath, []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("c"), 0o600))

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "panel.db")

	changes := startWatcher(t, dbPath)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, changes.Load())
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := fswatch.New(filepath.Join(t.TempDir(), "missing", "panel.db"), 0, func() {}, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
