package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB creates a named shared in-memory database with migrations
// applied. The name derives from t.Name() so parallel tests stay isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// WAL does not apply to in-memory databases; journal_mode is omitted.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s", url.PathEscape(t.Name()), pragmas)
	ctx := context.Background()

	writer, err := openPool(ctx, dsn, 1)
	if err != nil {
		t.Fatalf("open test db writer: %v", err)
	}
	reader, err := openPool(ctx, dsn, 4)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("open test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}
