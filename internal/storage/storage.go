package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ObjectStorage is a single bucket on an object store (MinIO, GCS or S3).
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage stores uploaded media files as objects in one bucket.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open checks the bucket exists. The backend is closed when that fails.
func Open(ctx context.Context, backend ObjectStorage) (*Storage, error) {
	s := NewStorage(backend)
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err), s.Close())
	}
	return s, nil
}

// PutFile writes file under key.
func (s *Storage) PutFile(ctx context.Context, key string, file File) error {
	if len(file.Data) == 0 {
		return errors.New("empty file")
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.backend.Put(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
		return fmt.Errorf("put %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.backend.Bucket(), key, err)
	}
	return nil
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Close releases the backend client when it holds one.
func (s *Storage) Close() error {
	if closer, ok := s.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
