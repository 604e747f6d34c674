package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadError carries the HTTP-style status of a failed storage call so
// callers can surface a human-readable message.
type UploadError struct {
	StatusCode int
	Message    string
}

func (e *UploadError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upload failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upload failed: %s", e.Message)
}

// Storage provides an S3-compatible storage backend using MinIO.
// Objects live in a single bucket under folder/subfolder prefixes.
type Storage struct {
	client        *minio.Client
	bucketName    string
	publicBaseURL string
}

// NewStorage creates a new Storage instance connected to the specified
// MinIO server. If the bucket does not exist, it will be created
// automatically. publicBaseURL overrides the URL prefix returned for
// uploaded objects; when empty, one is derived from the endpoint.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, publicBaseURL string) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	if publicBaseURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucketName)
	}

	return &Storage{
		client:        client,
		bucketName:    bucketName,
		publicBaseURL: publicBaseURL,
	}, nil
}

// Upload stores data under folder/subfolder with a collision-proof object
// key and returns the public URL and the key.
func (s *Storage) Upload(ctx context.Context, folder, subfolder, filename, contentType string, data []byte) (string, string, error) {
	key := path.Join(folder, subfolder, fmt.Sprintf("%s-%s", uuid.New().String(), filename))

	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		return "", "", &UploadError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	return fmt.Sprintf("%s/%s", s.publicBaseURL, key), key, nil
}

// Load retrieves an object by key and returns a reader.
func (s *Storage) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}

	return obj, nil
}

// Delete removes the specified object from the bucket.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}
