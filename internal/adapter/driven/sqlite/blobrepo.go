package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BlobStore = (*BlobRepo)(nil)

// encryptedPrefix marks values sealed with AES-256-GCM so plaintext blobs
// written without a key stay readable after a key is configured.
const encryptedPrefix = "enc:v1:"

// BlobRepo is the SQLite implementation of the BlobStore port. When a key is
// configured, values are sealed with AES-256-GCM before write.
type BlobRepo struct {
	db  *DB
	gcm cipher.AEAD // nil when encryption is disabled.
}

// NewBlobRepo creates a BlobRepo. key must be 32 bytes for AES-256-GCM, or
// nil to store values as plaintext.
func NewBlobRepo(db *DB, key []byte) (*BlobRepo, error) {
	repo := &BlobRepo{db: db}
	if key == nil {
		return repo, nil
	}
	if len(key) != 32 {
		return nil, driven.ErrEncryptionKeyInvalid
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	repo.gcm = gcm
	return repo, nil
}

// Get returns the value stored under key, decrypting it when sealed.
func (r *BlobRepo) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM blobs WHERE key = ?`
	var stored string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get blob %q: %w", key, err)
	}

	value, err := r.open(stored)
	if err != nil {
		return "", false, fmt.Errorf("decrypt blob %q: %w", key, err)
	}
	return value, true, nil
}

// Put replaces the value under key in a single statement.
func (r *BlobRepo) Put(ctx context.Context, key, value string) error {
	stored, err := r.seal(value)
	if err != nil {
		return fmt.Errorf("encrypt blob %q: %w", key, err)
	}

	const query = `INSERT OR REPLACE INTO blobs (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`
	if _, err := r.db.Writer.ExecContext(ctx, query, key, stored); err != nil {
		return fmt.Errorf("put blob %q: %w", key, err)
	}
	return nil
}

// Delete removes the value under key.
func (r *BlobRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM blobs WHERE key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// seal encrypts value and returns encryptedPrefix followed by the base64 of
// nonce || ciphertext || tag. Without a key it returns value unchanged.
func (r *BlobRepo) seal(value string) (string, error) {
	if r.gcm == nil {
		return value, nil
	}

	nonce := make([]byte, r.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := r.gcm.Seal(nonce, nonce, []byte(value), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// open reverses seal. A sealed value read without a key is an error.
func (r *BlobRepo) open(stored string) (string, error) {
	encoded, sealed := strings.CutPrefix(stored, encryptedPrefix)
	if !sealed {
		return stored, nil
	}
	if r.gcm == nil {
		return "", errors.New("value is encrypted but no key is configured")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	nonceSize := r.gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := r.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}
	return string(plaintext), nil
}
