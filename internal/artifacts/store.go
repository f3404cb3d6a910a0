// Package artifacts moves pre-built ASR model artifacts between the
// operator's machine and the deployment's S3 bucket. The inference server
// pulls the same objects during provisioning.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3APIClient is the narrow S3 interface used by the artifact store.
type s3APIClient interface {
	ListObjectsV2(ctx context.Context, params *s3svc.ListObjectsV2Input, optFns ...func(*s3svc.Options)) (*s3svc.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3svc.GetObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3svc.PutObjectInput, optFns ...func(*s3svc.Options)) (*s3svc.PutObjectOutput, error)
}

// Object describes one stored artifact.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store reads and writes model artifacts under one bucket/prefix pair.
type Store struct {
	api    s3APIClient
	bucket string
	prefix string
}

// NewStore returns a store backed by the real S3 SDK client built from cfg.
func NewStore(cfg aws.Config, bucket, prefix string) *Store {
	return &Store{api: s3svc.NewFromConfig(cfg), bucket: bucket, prefix: prefix}
}

// NewStoreWithAPI returns a store using the supplied API implementation.
// Pass a fake in unit tests.
func NewStoreWithAPI(api s3APIClient, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

// List returns every artifact under the store's prefix, following
// continuation tokens until the listing is complete.
func (s *Store) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	var token *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3svc.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list artifacts in s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range out.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return objects, nil
}

// Pull downloads one artifact to destPath, creating parent directories as
// needed. key is relative to the store prefix.
func (s *Store) Pull(ctx context.Context, key, destPath string) error {
	fullKey := s.fullKey(key)
	out, err := s.api.GetObject(ctx, &s3svc.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", s.bucket, fullKey, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", destPath, err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// Push uploads a local file as an artifact. key is relative to the store
// prefix.
func (s *Store) Push(ctx context.Context, srcPath, key string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer f.Close()

	fullKey := s.fullKey(key)
	_, err = s.api.PutObject(ctx, &s3svc.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, fullKey, err)
	}
	return nil
}

func (s *Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}
