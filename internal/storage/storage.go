// Package storage archives generated report exports to an object bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
)

const reportPrefix = "reports"

// ErrDisabled is returned by read operations when no backend is configured.
var ErrDisabled = errors.New("storage: no archive backend configured")

// ObjectStore defines common object operations across backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Archive stores report exports under a stable key layout. A nil *Archive is
// valid and archives nothing.
type Archive struct {
	backend ObjectStore
}

// NewArchive constructs an Archive over the provided backend.
func NewArchive(backend ObjectStore) *Archive {
	return &Archive{backend: backend}
}

// Enabled reports whether a backend is configured.
func (a *Archive) Enabled() bool {
	return a != nil && a.backend != nil
}

// EnsureBucket ensures the configured bucket exists.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}
	return a.backend.EnsureBucket(ctx)
}

// SaveReport writes an export under reports/<filename>.
func (a *Archive) SaveReport(ctx context.Context, filename, contentType string, data []byte) error {
	if !a.Enabled() {
		return nil
	}
	key := path.Join(reportPrefix, filename)
	return a.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

// OpenReport opens a previously archived export.
func (a *Archive) OpenReport(ctx context.Context, filename string) (io.ReadCloser, error) {
	if !a.Enabled() {
		return nil, ErrDisabled
	}
	return a.backend.Get(ctx, path.Join(reportPrefix, filename))
}

// DeleteReport removes an archived export.
func (a *Archive) DeleteReport(ctx context.Context, filename string) error {
	if !a.Enabled() {
		return nil
	}
	return a.backend.Delete(ctx, path.Join(reportPrefix, filename))
}
