package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	drepo "StockPilot/internal/domain/repository"
)

// Filesystem stores objects as files under a root directory.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fs root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("fs root: %w", err)
	}
	return &Filesystem{root: abs}, nil
}

func (f *Filesystem) path(key string) (string, error) {
	p := filepath.Join(f.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("key %q escapes root", key)
	}
	return p, nil
}

// PutIfAbsent writes to a temp file and links it into place, so readers never
// see a partial object and an existing file is left alone.
func (f *Filesystem) PutIfAbsent(_ context.Context, key string, data []byte, _ string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("fs mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("fs temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fs write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fs write %s: %w", key, err)
	}
	if err := os.Link(tmp.Name(), p); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("fs %s: %w", key, drepo.ErrObjectExists)
		}
		return fmt.Errorf("fs link %s: %w", key, err)
	}
	return nil
}

func (f *Filesystem) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("fs %s: %w", key, drepo.ErrNotFound)
	}
	return b, err
}

func (f *Filesystem) URI(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(f.root, filepath.FromSlash(key)))
}

func (f *Filesystem) Key(uri string) (string, error) {
	prefix := "file://" + filepath.ToSlash(f.root) + "/"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("uri %q is outside %s", uri, f.root)
	}
	return strings.TrimPrefix(uri, prefix), nil
}

var _ drepo.ObjectStore = (*Filesystem)(nil)
