// Package sink stores extracted files: in a directory, in a compressed tar
// archive or in an S3 bucket.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by Put after Close.
var ErrClosed = errors.New("sink: closed")

// Sink receives named files. Names use forward slashes and may contain
// directories.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Close() error
}

// S3Options configures s3:// targets.
type S3Options struct {
	Region       string // e.g. "us-east-1"
	Endpoint     string // custom endpoint for MinIO compatibility
	UsePathStyle bool
}

// Open picks a sink by target:
//
//	s3://bucket/prefix   objects in S3 under prefix
//	out.tar.zst          zstd-compressed tar archive
//	out.tar.gz, out.tgz  gzip-compressed tar archive
//	anything else        a directory, created if missing
func Open(ctx context.Context, target string, s3opts S3Options) (Sink, error) {
	switch {
	case target == "":
		return nil, fmt.Errorf("sink: empty target")
	case strings.HasPrefix(target, "s3://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(target, "s3://"), "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		return NewS3(ctx, S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       s3opts.Region,
			Endpoint:     s3opts.Endpoint,
			UsePathStyle: s3opts.UsePathStyle,
		})
	case strings.HasSuffix(target, ".tar.zst"):
		return NewArchive(target, Zstd)
	case strings.HasSuffix(target, ".tar.gz"), strings.HasSuffix(target, ".tgz"):
		return NewArchive(target, Gzip)
	default:
		return NewDir(target)
	}
}

// cleanName rejects names that would escape the sink's root.
func cleanName(name string) (string, error) {
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "", fmt.Errorf("sink: empty name")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("sink: name %q leaves the output root", name)
		}
	}
	return name, nil
}
