package storage

import (
	"context"
	"fmt"

	"github.com/iheejigoro/apiserver/config"
)

// NewMediaHost builds the media host selected by cfg.Backend. Bucket-backed
// hosts have their bucket created on first start.
func NewMediaHost(ctx context.Context, cfg config.MediaConfig) (MediaHost, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case config.MediaBackendCloudinary:
		return NewCloudinaryHost(cfg.Cloudinary)
	case config.MediaBackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.MediaBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.MediaBackendS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}

	store, err := Open(ctx, backend)
	if err != nil {
		return nil, err
	}
	return NewObjectMediaHost(store, cfg.PublicBaseURL), nil
}
