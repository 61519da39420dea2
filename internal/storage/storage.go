// Package storage manages job artifacts on local disk and, optionally, their
// published copies in S3.
package storage

import (
	"context"
	"io"
	"io/fs"
)

// File is an opened artifact that can be served with range support.
type File interface {
	io.ReadSeekCloser
	Stat() (fs.FileInfo, error)
}

// Storage defines artifact operations used by the pipeline worker, the job
// registry and the HTTP layer.
type Storage interface {
	// Dir returns the directory that holds job artifacts.
	Dir() string

	// Cleanup removes the given files. Missing files are not an error and
	// cleanup continues past individual failures.
	Cleanup(ctx context.Context, paths []string) error

	// Promote moves src to dst, replacing dst if it exists.
	Promote(ctx context.Context, src, dst string) error

	// Open opens an artifact for reading.
	// The caller is responsible for closing the returned File.
	Open(ctx context.Context, path string) (File, error)

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)

	// DeleteFromS3 removes a previously uploaded object.
	// Returns ErrS3NotConfigured if S3 is not configured.
	DeleteFromS3(ctx context.Context, key string) error
}
