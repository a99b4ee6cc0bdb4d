package sink

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the archive compressor.
type Compression int

const (
	Zstd Compression = iota
	Gzip
)

// Archive writes files into a compressed tar archive. The archive is
// complete only after Close.
type Archive struct {
	mu     sync.Mutex
	f      *os.File
	zw     io.WriteCloser
	tw     *tar.Writer
	now    func() time.Time
	closed bool
}

var _ Sink = (*Archive)(nil)

// NewArchive creates the archive file at path.
func NewArchive(path string, c Compression) (*Archive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	var zw io.WriteCloser
	switch c {
	case Gzip:
		zw = gzip.NewWriter(f)
	default:
		zw, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
	}
	return &Archive{f: f, zw: zw, tw: tar.NewWriter(zw), now: time.Now}, nil
}

// Put appends a regular file entry.
func (a *Archive) Put(ctx context.Context, name, _ string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  a.now(),
	}
	if err := a.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("tar header %s: %w", name, err)
	}
	if _, err := a.tw.Write(data); err != nil {
		return fmt.Errorf("tar write %s: %w", name, err)
	}
	return nil
}

// Close finishes the tar stream, flushes the compressor and closes the
// file. Close is idempotent.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	err := a.tw.Close()
	if cerr := a.zw.Close(); err == nil {
		err = cerr
	}
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}
