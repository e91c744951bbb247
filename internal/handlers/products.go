package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/iheejigoro/apiserver/internal/services"
	"github.com/iheejigoro/apiserver/types"
)

// ProductService is the subset of *services.ProductService the handlers use.
type ProductService interface {
	List(ctx context.Context, offset, limit int) ([]types.Product, int, error)
	Get(ctx context.Context, id string) (types.Product, error)
	Create(ctx context.Context, seller types.Seller, in services.ProductInput) (types.Product, error)
	Update(ctx context.Context, actorID, id string, in services.ProductUpdate) (types.Product, error)
	Delete(ctx context.Context, actorID, id string) error
}

// ProductHandler provides HTTP handlers for product listings.
type ProductHandler struct {
	products ProductService
	logger   *slog.Logger
}

func NewProductHandler(products ProductService, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{products: products, logger: logger}
}

// ProductRouter registers product routes on the given router. Reads are
// public; writes require authentication.
func ProductRouter(r chi.Router, products ProductService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewProductHandler(products, logger)

	r.Get("/", handler.ListProducts)
	r.With(authMiddleware).Post("/", handler.CreateProduct)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.With(authMiddleware).Put("/", handler.UpdateProduct)
		r.With(authMiddleware).Delete("/", handler.DeleteProduct)
	})
}

// ProductListResponse is the paginated list response payload.
type ProductListResponse struct {
	Items []types.Product `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

// productFields holds the text fields shared by create and update.
type productFields struct {
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	NameOfItem   string   `json:"nameofitem"`
	NameOfVendor string   `json:"nameofvendor"`
	Color        string   `json:"color"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address"`
	Price        *float64 `json:"price"`
	State        string   `json:"state"`
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.products.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "product not found", "failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, ProductListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "product not found", "failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProduct reads a multipart form with the listing fields and one to
// five "image" files. The seller is the authenticated user.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := parseMultipart(w, r); err != nil {
		writeUploadError(w, err)
		return
	}
	fields, fieldErrs := productFieldsFromForm(r)
	if len(fieldErrs) > 0 {
		writeFieldErrors(w, fieldErrs)
		return
	}
	files, err := readImages(r.MultipartForm)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	in := services.ProductInput{
		Category:     fields.Category,
		Description:  fields.Description,
		NameOfItem:   fields.NameOfItem,
		NameOfVendor: fields.NameOfVendor,
		Color:        fields.Color,
		Phone:        fields.Phone,
		Address:      fields.Address,
		State:        fields.State,
		Images:       files,
	}
	if fields.Price != nil {
		in.Price = *fields.Price
	}

	seller := types.Seller{ID: claims.UserID, Username: claims.NameOfVendor}
	created, err := h.products.Create(r.Context(), seller, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "product not found", "failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct accepts JSON or a multipart form. Files under "image"
// replace the current image set.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		fields productFields
		in     services.ProductUpdate
	)
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			writeUploadError(w, err)
			return
		}
		var fieldErrs map[string]string
		fields, fieldErrs = productFieldsFromForm(r)
		if len(fieldErrs) > 0 {
			writeFieldErrors(w, fieldErrs)
			return
		}
		files, err := readImages(r.MultipartForm)
		if err != nil {
			writeUploadError(w, err)
			return
		}
		in.Images = files
	} else if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if fields.Price != nil && *fields.Price <= 0 {
		writeFieldErrors(w, map[string]string{"price": "Price must be greater than 0"})
		return
	}

	in.Category = fields.Category
	in.Description = fields.Description
	in.NameOfItem = fields.NameOfItem
	in.NameOfVendor = fields.NameOfVendor
	in.Color = fields.Color
	in.Phone = fields.Phone
	in.Address = fields.Address
	in.State = fields.State
	if fields.Price != nil {
		in.Price = *fields.Price
	}

	updated, err := h.products.Update(r.Context(), claims.UserID, chi.URLParam(r, "productID"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "product not found", "failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.products.Delete(r.Context(), claims.UserID, chi.URLParam(r, "productID")); err != nil {
		writeServiceError(w, r, h.logger, err, "product not found", "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func productFieldsFromForm(r *http.Request) (productFields, map[string]string) {
	fields := productFields{
		Category:     strings.TrimSpace(r.FormValue("category")),
		Description:  strings.TrimSpace(r.FormValue("description")),
		NameOfItem:   strings.TrimSpace(r.FormValue("nameofitem")),
		NameOfVendor: strings.TrimSpace(r.FormValue("nameofvendor")),
		Color:        strings.TrimSpace(r.FormValue("color")),
		Phone:        strings.TrimSpace(r.FormValue("phone")),
		Address:      strings.TrimSpace(r.FormValue("address")),
		State:        strings.TrimSpace(r.FormValue("state")),
	}

	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return productFields{}, map[string]string{"price": "Price must be a number"}
		}
		fields.Price = &price
	}
	return fields, nil
}
