package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyInvalid is returned by BlobStore constructors when the
// configured key is not 32 bytes long.
var ErrEncryptionKeyInvalid = errors.New("encryption key must be 32 bytes: check MYTASKPANEL_SECRET_KEY")

// BlobStore is the driven port for durable key-value persistence of
// serialized blobs. Each Put replaces the whole value in a single write, so a
// reader never observes a half-written blob.
type BlobStore interface {
	// Get returns the value stored under key. ok is false when no value exists.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Put stores or replaces the value under key.
	Put(ctx context.Context, key, value string) error

	// Delete removes the value under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
