package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/iheejigoro/apiserver/config"
	"github.com/iheejigoro/apiserver/types"
)

// CloudinaryHost stores media on Cloudinary. The reference id is the
// Cloudinary public id.
type CloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryHost builds a client from CLOUDINARY_URL when set, else from
// the split credentials.
func NewCloudinaryHost(cfg config.CloudinaryConfig) (*CloudinaryHost, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case strings.TrimSpace(cfg.URL) != "":
		cld, err = cloudinary.NewFromURL(cfg.URL)
	case strings.TrimSpace(cfg.CloudName) != "":
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	default:
		return nil, errors.New("cloudinary url or cloud name is required")
	}
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryHost{cld: cld}, nil
}

func (h *CloudinaryHost) Upload(ctx context.Context, folder string, file File) (types.Image, error) {
	if len(file.Data) == 0 {
		return types.Image{}, errors.New("empty file")
	}

	res, err := h.cld.Upload.Upload(ctx, bytes.NewReader(file.Data), uploader.UploadParams{
		Folder:       strings.Trim(folder, "/"),
		PublicID:     publicID(file.Name),
		ResourceType: "image",
	})
	if err != nil {
		return types.Image{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return types.Image{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	return types.Image{
		URL:         res.SecureURL,
		ReferenceID: res.PublicID,
	}, nil
}

// Delete destroys the asset. An unknown public id is treated as already gone.
func (h *CloudinaryHost) Delete(ctx context.Context, referenceID string) error {
	if strings.TrimSpace(referenceID) == "" {
		return nil
	}

	res, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     referenceID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", referenceID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", referenceID, res.Error.Message)
	}
	return nil
}

// publicID derives a unique id from the client file name, keeping only
// characters Cloudinary accepts in ids.
func publicID(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '-'
		default:
			return -1
		}
	}, base)
	if len(base) > 40 {
		base = base[:40]
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if base == "" || base == "-" {
		return suffix
	}
	return base + "-" + suffix
}
