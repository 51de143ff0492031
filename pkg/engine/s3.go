package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by the S3 engine.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 is an Engine that stores each key as one object under a key prefix.
//
// Example usage:
//
//	client := s3.NewFromConfig(awsCfg)
//	e := engine.NewS3(client, "my-bucket", "nanostore/")
type S3 struct {
	client  S3API
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3 creates an S3 engine.
//
// Parameters:
//   - client: S3 client from aws-sdk-go-v2
//   - bucket: bucket name
//   - prefix: object key prefix (e.g., "nanostore/"), may be empty
func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 10 * time.Second,
	}
}

// WithTimeout sets the per-operation timeout.
func (s *S3) WithTimeout(d time.Duration) *S3 {
	s.timeout = d
	return s
}

func (s *S3) objectKey(key string) string {
	return s.prefix + key
}

// Get implements Engine.
func (s *S3) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", false, nil
		}
		return "", false, storageError("get", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, storageError("get", key, err)
	}
	return string(body), true, nil
}

// Set implements Engine.
func (s *S3) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        strings.NewReader(value),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return storageError("set", key, err)
	}
	return nil
}

// Delete implements Engine.
func (s *S3) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return storageError("delete", key, err)
	}
	return nil
}

// Keys implements Engine.
func (s *S3) Keys() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storageError("keys", "", err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
	}
	return keys, nil
}

// String implements fmt.Stringer.
func (s *S3) String() string {
	return fmt.Sprintf("s3(%s/%s)", s.bucket, s.prefix)
}
