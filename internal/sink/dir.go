package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Dir writes each file under a base directory.
type Dir struct {
	baseDir string
}

var _ Sink = (*Dir)(nil)

// NewDir creates a directory sink, creating baseDir if it does not exist.
func NewDir(baseDir string) (*Dir, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Dir{baseDir: baseDir}, nil
}

// Put writes data atomically (temp file + rename).
func (d *Dir) Put(ctx context.Context, name, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	path := filepath.Join(d.baseDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Close is a no-op.
func (d *Dir) Close() error { return nil }
