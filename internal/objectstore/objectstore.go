// Package objectstore abstracts blob storage behind the scheme of
// MICROMEGAS_OBJECT_STORE_URI (spec.md §6), mirroring the backend-registry
// idiom of internal/storage/factory: a small registry of scheme factories,
// picked by URL scheme instead of a --backend flag.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Store is the minimal blob-storage surface the lakehouse needs: writing
// and reading whole partition files, and batch-deleting retired ones.
type Store interface {
	// Put uploads the full contents of r to key, returning the number of
	// bytes written.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Get opens key for streaming reads. Callers must Close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes one or more keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Root returns the store's base URI, used to build new partition paths.
	Root() string
}

// Factory builds a Store from a parsed URI.
type Factory func(ctx context.Context, u *url.URL) (Store, error)

var registry = make(map[string]Factory)

// Register adds a scheme factory (called from each backend's init()).
func Register(scheme string, f Factory) {
	registry[scheme] = f
}

// Open parses rawURI and dispatches to the registered factory for its
// scheme, per spec.md §6's MICROMEGAS_OBJECT_STORE_URI ("file://" or
// "s3://bucket/prefix").
func Open(ctx context.Context, rawURI string) (Store, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("parsing object store URI %q: %w", rawURI, err)
	}
	f, ok := registry[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported object store scheme %q (supported: file, s3)", u.Scheme)
	}
	return f(ctx, u)
}
