package storage

import (
	"context"

	"github.com/iheejigoro/apiserver/types"
)

const mediaCacheControl = "public, max-age=31536000, immutable"

// File is an uploaded image held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MediaHost stores images and hands back a public URL plus a reference id
// used to delete them later.
type MediaHost interface {
	Upload(ctx context.Context, folder string, file File) (types.Image, error)
	Delete(ctx context.Context, referenceID string) error
}
