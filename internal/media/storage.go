// Package media stores uploaded images on S3 or on local disk.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage persists one object and returns its public URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Local writes objects under dir and serves them from publicPath.
type Local struct {
	dir        string
	publicPath string
}

func NewLocal(dir, publicPath string) *Local {
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return &Local{dir: dir, publicPath: publicPath}
}

// Dir is the root the file server should expose.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)[1:]
	dest := filepath.Join(l.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return l.publicPath + clean, nil
}

// PutObjectAPI is the part of *s3.Client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads objects to one bucket.
type S3 struct {
	client    PutObjectAPI
	bucket    string
	region    string
	publicURL string
}

// S3Options configures the bucket. Endpoint targets S3-compatible services; PublicURL
// overrides the virtual-hosted AWS URL.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

// NewS3 loads the default AWS credential chain and builds a path-style client.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewS3WithClient(client, opts), nil
}

func NewS3WithClient(client PutObjectAPI, opts S3Options) *S3 {
	return &S3{
		client:    client,
		bucket:    opts.Bucket,
		region:    opts.Region,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
	}
}

func (s *S3) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
