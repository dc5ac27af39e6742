package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func init() {
	Register("s3", newS3Store)
}

type s3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// newS3Store builds an S3-backed Store from an "s3://bucket/prefix" URI.
// Endpoint/region/credentials come from the standard AWS SDK environment
// chain (AWS_REGION, AWS_ENDPOINT_URL, AWS_ACCESS_KEY_ID, ...), matching
// how the rest of the pack's manifests wire aws-sdk-go-v2.
func newS3Store(ctx context.Context, u *url.URL) (Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for object store: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := u.Query().Get("endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if u.Query().Get("path-style") == "true" {
			o.UsePathStyle = true
		}
	})
	return &s3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   u.Host,
		prefix:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func (s *s3Store) Root() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix) }

func (s *s3Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + key
}

func (s *s3Store) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	counter := &countingReader{r: r}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   counter,
	})
	if err != nil {
		return counter.n, fmt.Errorf("uploading object %q: %w", key, err)
	}
	return counter.n, nil
}

func (s *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching object %q: %w", key, err)
	}
	return out.Body, nil
}

func (s *s3Store) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.fullKey(key)),
		}); err != nil {
			return fmt.Errorf("deleting object %q: %w", key, err)
		}
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
