package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iheejigoro/apiserver/types"
)

// ObjectMediaHost serves media from a bucket. The object key doubles as the
// reference id and the public URL is the key under baseURL.
type ObjectMediaHost struct {
	storage *Storage
	baseURL string
	now     func() time.Time
}

func NewObjectMediaHost(storage *Storage, baseURL string) *ObjectMediaHost {
	return &ObjectMediaHost{
		storage: storage,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (h *ObjectMediaHost) Upload(ctx context.Context, folder string, file File) (types.Image, error) {
	key := h.objectKey(folder, file.Name)
	if err := h.storage.PutFile(ctx, key, file); err != nil {
		return types.Image{}, err
	}

	return types.Image{
		URL:         h.baseURL + "/" + key,
		ReferenceID: key,
	}, nil
}

func (h *ObjectMediaHost) Delete(ctx context.Context, referenceID string) error {
	if strings.TrimSpace(referenceID) == "" {
		return nil
	}
	return h.storage.Delete(ctx, referenceID)
}

// Close releases the bucket client.
func (h *ObjectMediaHost) Close() error {
	return h.storage.Close()
}

// objectKey builds folder/<unix>-<uuid><ext>. The client file name only
// contributes its extension.
func (h *ObjectMediaHost) objectKey(folder, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := fmt.Sprintf("%d-%s%s", h.now().Unix(), uuid.NewString(), ext)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return base
	}
	return path.Join(folder, base)
}
