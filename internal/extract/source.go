//-------------------------------------------------------------------------
//
// pgEdge Retail Data Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source provides the raw bytes of one extract file.
type Source interface {
	// Name describes the source for logging and error context.
	Name() string

	// Open returns a reader over the extract contents.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads an extract from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &Error{Source: s.Path, Err: err}
	}
	return f, nil
}

// S3Source reads an extract from an S3-compatible object store.
type S3Source struct {
	Bucket string
	Key    string

	client *s3.Client
}

// NewS3Source creates an S3Source using the default AWS credential chain.
func NewS3Source(ctx context.Context, bucket, key string) (*S3Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Source{
		Bucket: bucket,
		Key:    key,
		client: s3.NewFromConfig(cfg),
	}, nil
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket,
		Key:    &s.Key,
	})
	if err != nil {
		return nil, &Error{Source: s.Name(), Err: err}
	}
	return out.Body, nil
}

// OpenSource resolves a source location string into a Source.
// Locations of the form s3://bucket/key resolve to an S3Source,
// anything else is treated as a local file path.
func OpenSource(ctx context.Context, location string) (Source, error) {
	if strings.HasPrefix(location, "s3://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 location %q: bucket and key required", location)
		}
		return NewS3Source(ctx, u.Host, key)
	}
	return FileSource{Path: location}, nil
}
