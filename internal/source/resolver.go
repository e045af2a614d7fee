package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// File is an opened migration source file ready for upload.
type File struct {
	// Name is the base file name, used as the upload filename.
	Name   string
	Reader io.ReadCloser
}

// Close closes the underlying reader.
func (f *File) Close() error {
	return f.Reader.Close()
}

// Resolver opens migration source files by URI. Plain paths are read from
// local disk; s3://bucket/key URIs are fetched from S3-compatible object
// storage when a store is configured.
type Resolver struct {
	s3 *S3Store
}

// NewResolver creates a resolver. s3 may be nil when no object storage is
// configured; s3:// URIs are then rejected.
func NewResolver(s3 *S3Store) *Resolver {
	return &Resolver{s3: s3}
}

// Open opens the source file behind uri.
func (r *Resolver) Open(ctx context.Context, uri string) (*File, error) {
	if bucket, key, ok := splitS3URI(uri); ok {
		if r.s3 == nil {
			return nil, fmt.Errorf("source %q requires object storage, which is not configured", uri)
		}
		body, err := r.s3.Download(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return &File{Name: path.Base(key), Reader: body}, nil
	}

	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	return &File{Name: filepath.Base(uri), Reader: f}, nil
}

// splitS3URI parses s3://bucket/key into its parts.
func splitS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
