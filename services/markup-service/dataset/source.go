package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

// Source opens the raw CSV bytes for a task.
type Source interface {
	Open(ctx context.Context, task models.TaskType) (io.ReadCloser, error)
	// Describe names where the task's data lives, for logs.
	Describe(task models.TaskType) string
}

// FileSource reads datasets from the local filesystem.
type FileSource struct {
	paths map[models.TaskType]string
}

func NewFileSource(searchPath, matchingPath string) *FileSource {
	return &FileSource{paths: map[models.TaskType]string{
		models.TaskSearch:   searchPath,
		models.TaskMatching: matchingPath,
	}}
}

func (s *FileSource) Open(_ context.Context, task models.TaskType) (io.ReadCloser, error) {
	path, ok := s.paths[task]
	if !ok || path == "" {
		return nil, fmt.Errorf("no dataset path configured for %s task", task)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s dataset: %w", task, err)
	}
	return f, nil
}

func (s *FileSource) Describe(task models.TaskType) string {
	return "file://" + s.paths[task]
}

// S3GetObjectAPI is the subset of the S3 client used by S3Source.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads datasets stored as objects in one bucket.
type S3Source struct {
	client S3GetObjectAPI
	bucket string
	keys   map[models.TaskType]string
}

func NewS3Source(client S3GetObjectAPI, bucket, searchKey, matchingKey string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		keys: map[models.TaskType]string{
			models.TaskSearch:   searchKey,
			models.TaskMatching: matchingKey,
		},
	}
}

func (s *S3Source) Open(ctx context.Context, task models.TaskType) (io.ReadCloser, error) {
	key, ok := s.keys[task]
	if !ok || key == "" {
		return nil, fmt.Errorf("no dataset key configured for %s task", task)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

func (s *S3Source) Describe(task models.TaskType) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.keys[task])
}
