package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

func init() {
	Register("file", newFileStore)
}

type fileStore struct {
	root string
}

func newFileStore(_ context.Context, u *url.URL) (Store, error) {
	root := u.Path
	if root == "" {
		root = u.Opaque
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating object store root %q: %w", root, err)
	}
	return &fileStore{root: root}, nil
}

func (f *fileStore) Root() string { return "file://" + f.root }

func (f *fileStore) resolve(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *fileStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	path := f.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating parent directory for %q: %w", key, err)
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating object %q: %w", key, err)
	}
	defer out.Close()
	n, err := io.Copy(out, r)
	if err != nil {
		return n, fmt.Errorf("writing object %q: %w", key, err)
	}
	return n, nil
}

func (f *fileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(f.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("opening object %q: %w", key, err)
	}
	return file, nil
}

func (f *fileStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(f.resolve(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting object %q: %w", key, err)
		}
	}
	return nil
}
