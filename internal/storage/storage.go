// Package storage holds attachment content.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a key has no stored content.
var ErrNotFound = errors.New("blob not found")

// Store is a flat key/value blob store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a unique storage key under a scope prefix, keeping the
// file extension.
func NewKey(scopeKey, fileName string) string {
	prefix := strings.ReplaceAll(scopeKey, ":", "/")
	return prefix + "/" + uuid.NewString() + strings.ToLower(path.Ext(fileName))
}
