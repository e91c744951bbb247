package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/iheejigoro/apiserver/internal/storage"
	"github.com/iheejigoro/apiserver/internal/validation"
	"github.com/iheejigoro/apiserver/types"
)

const (
	productsFolder = "products"

	// MaxProductImages bounds the images attached to one listing. At least
	// one image is always required.
	MaxProductImages = 5
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Product, int, error)
	Get(ctx context.Context, id string) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductInput struct {
	Category     string         `json:"category" validate:"required,min=2"`
	Description  string         `json:"description" validate:"required,min=50"`
	NameOfItem   string         `json:"nameofitem" validate:"required,min=4"`
	NameOfVendor string         `json:"nameofvendor" validate:"required,min=3"`
	Color        string         `json:"color" validate:"required,min=3"`
	Phone        string         `json:"phone" validate:"required,len=10,numeric"`
	Address      string         `json:"address" validate:"required,min=3"`
	Price        float64        `json:"price" validate:"gt=0"`
	State        string         `json:"state" validate:"required,min=3"`
	Images       []storage.File `json:"image" validate:"min=1,max=5"`
}

// ProductUpdate mirrors ProductInput with every field optional. A non-empty
// Images replaces the whole image set.
type ProductUpdate struct {
	Category     string         `json:"category" validate:"omitempty,min=2"`
	Description  string         `json:"description" validate:"omitempty,min=50"`
	NameOfItem   string         `json:"nameofitem" validate:"omitempty,min=4"`
	NameOfVendor string         `json:"nameofvendor" validate:"omitempty,min=3"`
	Color        string         `json:"color" validate:"omitempty,min=3"`
	Phone        string         `json:"phone" validate:"omitempty,len=10,numeric"`
	Address      string         `json:"address" validate:"omitempty,min=3"`
	Price        float64        `json:"price" validate:"omitempty,gt=0"`
	State        string         `json:"state" validate:"omitempty,min=3"`
	Images       []storage.File `json:"image" validate:"omitempty,max=5"`
}

// ProductService encapsulates listing use-cases.
type ProductService struct {
	repo      ProductRepository
	media     storage.MediaHost
	validator *validation.Validator
	events    *Events
	folder    string
	logger    *slog.Logger
}

func NewProductService(
	repo ProductRepository,
	media storage.MediaHost,
	events *Events,
	mediaFolder string,
	logger *slog.Logger,
) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{
		repo:      repo,
		media:     media,
		validator: validation.New(),
		events:    events,
		folder:    path.Join(mediaFolder, productsFolder),
		logger:    logger,
	}
}

func (s *ProductService) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *ProductService) Get(ctx context.Context, id string) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

// Create uploads the images and stores the listing under seller. Uploaded
// images are removed again if the listing cannot be saved.
func (s *ProductService) Create(ctx context.Context, seller types.Seller, in ProductInput) (types.Product, error) {
	trimProductInput(&in)
	if fields, ok := s.validator.Validate(in); !ok {
		return types.Product{}, newValidationError(fields)
	}

	images, err := s.uploadAll(ctx, in.Images)
	if err != nil {
		return types.Product{}, err
	}

	created, err := s.repo.Create(ctx, types.Product{
		Category:     in.Category,
		Images:       images,
		Description:  in.Description,
		NameOfItem:   in.NameOfItem,
		NameOfVendor: in.NameOfVendor,
		Color:        in.Color,
		Phone:        in.Phone,
		Address:      in.Address,
		Price:        in.Price,
		State:        in.State,
		Seller:       seller,
	})
	if err != nil {
		s.discardAll(ctx, images)
		return types.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.events.emit(ctx, types.EventProductCreated, created.ID, seller.ID, created)
	return created, nil
}

// Update merges in over the listing. Only its seller may update it.
func (s *ProductService) Update(ctx context.Context, actorID, id string, in ProductUpdate) (types.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}
	if actorID == "" || product.Seller.ID != actorID {
		return types.Product{}, ErrForbidden
	}

	trimProductUpdate(&in)
	if fields, ok := s.validator.Validate(in); !ok {
		return types.Product{}, newValidationError(fields)
	}

	product.Category = coalesce(in.Category, product.Category)
	product.Description = coalesce(in.Description, product.Description)
	product.NameOfItem = coalesce(in.NameOfItem, product.NameOfItem)
	product.NameOfVendor = coalesce(in.NameOfVendor, product.NameOfVendor)
	product.Color = coalesce(in.Color, product.Color)
	product.Phone = coalesce(in.Phone, product.Phone)
	product.Address = coalesce(in.Address, product.Address)
	product.State = coalesce(in.State, product.State)
	if in.Price > 0 {
		product.Price = in.Price
	}

	oldImages := product.Images
	var newImages []types.Image
	if len(in.Images) > 0 {
		newImages, err = s.uploadAll(ctx, in.Images)
		if err != nil {
			return types.Product{}, err
		}
		product.Images = newImages
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		s.discardAll(ctx, newImages)
		return types.Product{}, fmt.Errorf("update product: %w", err)
	}
	if len(newImages) > 0 {
		s.discardAll(ctx, oldImages)
	}

	s.events.emit(ctx, types.EventProductUpdated, updated.ID, actorID, updated)
	return updated, nil
}

// Delete removes the listing and then its images. Only its seller may
// delete it. Image removal failures are logged, not returned.
func (s *ProductService) Delete(ctx context.Context, actorID, id string) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if actorID == "" || product.Seller.ID != actorID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.discardAll(ctx, product.Images)

	s.events.emit(ctx, types.EventProductDeleted, id, actorID, nil)
	return nil
}

// uploadAll uploads files in order. On the first failure the images already
// uploaded are deleted and ErrMedia is returned.
func (s *ProductService) uploadAll(ctx context.Context, files []storage.File) ([]types.Image, error) {
	images := make([]types.Image, 0, len(files))
	for _, file := range files {
		img, err := s.media.Upload(ctx, s.folder, file)
		if err != nil {
			s.discardAll(ctx, images)
			return nil, fmt.Errorf("%w: upload %s: %v", ErrMedia, file.Name, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *ProductService) discardAll(ctx context.Context, images []types.Image) {
	for _, img := range images {
		if err := s.media.Delete(ctx, img.ReferenceID); err != nil {
			s.logger.WarnContext(ctx, "delete media failed", "reference_id", img.ReferenceID, "error", err)
		}
	}
}

func trimProductInput(in *ProductInput) {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.NameOfItem = strings.TrimSpace(in.NameOfItem)
	in.NameOfVendor = strings.TrimSpace(in.NameOfVendor)
	in.Color = strings.TrimSpace(in.Color)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.State = strings.TrimSpace(in.State)
}

func trimProductUpdate(in *ProductUpdate) {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.NameOfItem = strings.TrimSpace(in.NameOfItem)
	in.NameOfVendor = strings.TrimSpace(in.NameOfVendor)
	in.Color = strings.TrimSpace(in.Color)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.State = strings.TrimSpace(in.State)
}
