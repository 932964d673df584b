package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
)

// S3Store is the production BlobStore adapter.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store wraps an already-configured s3.Client.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) PutText(ctx context.Context, key, content, mime string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String(mime),
	})
	return classifyS3Err(err, "put text object")
}

func (s *S3Store) PutBinary(ctx context.Context, key string, data []byte, mime string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	return classifyS3Err(err, "put binary object")
}

func (s *S3Store) GetText(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", apperrors.NewNotFoundError("object " + key)
		}
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
			return "", apperrors.NewNotFoundError("object " + key)
		}
		return "", classifyS3Err(err, "get text object")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", apperrors.NewTransientError(err, "read object body")
	}
	return string(data), nil
}

// classifyS3Err maps a raw S3 error to the Transient/Internal split
// required by spec §4.2: 5xx and network failures are retryable.
func classifyS3Err(err error, operation string) error {
	if err == nil {
		return nil
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return apperrors.NewTransientError(err, operation)
	}
	return apperrors.NewInternalError(err, operation)
}

var _ BlobStore = (*S3Store)(nil)
