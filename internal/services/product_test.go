package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/iheejigoro/apiserver/internal/storage"
	"github.com/iheejigoro/apiserver/internal/store"
	"github.com/iheejigoro/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeller = types.Seller{ID: "seller-1", Username: "Ada Stores"}

type productFixture struct {
	svc       *ProductService
	repo      *memoryProducts
	media     *fakeMedia
	publisher *fakePublisher
}

func newProductFixture() productFixture {
	repo := newMemoryProducts()
	media := newFakeMedia()
	publisher := &fakePublisher{}
	svc := NewProductService(repo, media, NewEvents(publisher, "events", nil), "ihe-ejigoro", nil)
	return productFixture{svc: svc, repo: repo, media: media, publisher: publisher}
}

func images(n int) []storage.File {
	files := make([]storage.File, n)
	for i := range files {
		files[i] = storage.File{Name: fmt.Sprintf("img%d.jpg", i), ContentType: "image/jpeg", Data: []byte{byte(i + 1)}}
	}
	return files
}

func validProduct(n int) ProductInput {
	return ProductInput{
		Category:     "furniture",
		Description:  strings.Repeat("Solid hardwood chair, lightly used. ", 2),
		NameOfItem:   "Wooden chair",
		NameOfVendor: "Ada Stores",
		Color:        "brown",
		Phone:        "0803123456",
		Address:      "12 Marina Road",
		Price:        15000,
		State:        "Lagos",
		Images:       images(n),
	}
}

func TestProductCreate(t *testing.T) {
	f := newProductFixture()

	created, err := f.svc.Create(context.Background(), testSeller, validProduct(2))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, testSeller, created.Seller)
	require.Len(t, created.Images, 2)
	assert.True(t, strings.HasPrefix(created.Images[0].ReferenceID, "ihe-ejigoro/products/"))
	assert.Equal(t, []string{types.EventProductCreated}, f.publisher.types())
}

func TestProductCreate_ImageCountBounds(t *testing.T) {
	f := newProductFixture()

	_, err := f.svc.Create(context.Background(), testSeller, validProduct(0))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "image")

	_, err = f.svc.Create(context.Background(), testSeller, validProduct(6))
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "image")

	_, err = f.svc.Create(context.Background(), testSeller, validProduct(5))
	assert.NoError(t, err)
	assert.Equal(t, 5, f.media.liveCount())
}

func TestProductCreate_FieldRules(t *testing.T) {
	f := newProductFixture()

	in := validProduct(1)
	in.Description = "too short"
	in.Phone = "080"
	in.Price = 0
	in.Category = "x"

	_, err := f.svc.Create(context.Background(), testSeller, in)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"category", "description", "phone", "price"}, sortedKeys(verr.Fields))
	assert.Equal(t, 0, f.media.liveCount())
}

func TestProductCreate_PartialUploadIsRolledBack(t *testing.T) {
	f := newProductFixture()
	f.media.failAfter = 2

	_, err := f.svc.Create(context.Background(), testSeller, validProduct(3))
	assert.ErrorIs(t, err, ErrMedia)
	assert.Equal(t, 0, f.media.liveCount())
	assert.Len(t, f.media.deleted, 2)
	assert.Empty(t, f.repo.byID)
}

func TestProductCreate_SaveFailureRemovesUploads(t *testing.T) {
	f := newProductFixture()
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Create(context.Background(), testSeller, validProduct(2))
	require.Error(t, err)
	assert.Equal(t, 0, f.media.liveCount())
	assert.Empty(t, f.publisher.types())
}

func TestProductUpdate_SellerOnly(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testSeller, validProduct(1))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "someone-else", created.ID, ProductUpdate{Color: "black"})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.Update(ctx, testSeller.ID, created.ID, ProductUpdate{Color: "black", Price: 9000})
	require.NoError(t, err)
	assert.Equal(t, "black", updated.Color)
	assert.Equal(t, 9000.0, updated.Price)
	assert.Equal(t, created.NameOfItem, updated.NameOfItem)
	assert.Equal(t, created.Images, updated.Images)

	_, err = f.svc.Update(ctx, testSeller.ID, "missing", ProductUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProductUpdate_ReplacesImages(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testSeller, validProduct(2))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, testSeller.ID, created.ID, ProductUpdate{Images: images(1)})
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.ElementsMatch(t, []string{created.Images[0].ReferenceID, created.Images[1].ReferenceID}, f.media.deleted)
	assert.Equal(t, 1, f.media.liveCount())
}

func TestProductUpdate_FailedSaveKeepsOldImages(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testSeller, validProduct(1))
	require.NoError(t, err)

	f.repo.updateErr = errors.New("db down")
	_, err = f.svc.Update(ctx, testSeller.ID, created.ID, ProductUpdate{Images: images(2)})
	require.Error(t, err)

	stored, err := f.repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Images, stored.Images)
	assert.Equal(t, 1, f.media.liveCount())
}

func TestProductDelete(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, testSeller, validProduct(2))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, "someone-else", created.ID), ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, testSeller.ID, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, f.media.liveCount())
	assert.Equal(t, []string{types.EventProductCreated, types.EventProductDeleted}, f.publisher.types())

	assert.ErrorIs(t, f.svc.Delete(ctx, testSeller.ID, created.ID), store.ErrNotFound)
}

func TestProductList_NewestFirstAndClamped(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		in := validProduct(1)
		in.NameOfItem = fmt.Sprintf("Item %d", i)
		created, err := f.svc.Create(ctx, testSeller, in)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	items, total, err := f.svc.List(ctx, -5, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, ids[2], items[0].ID)

	items, _, err = f.svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ids[1], items[0].ID)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func TestProductPhone_MustBeDigits(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	in := validProduct(1)
	in.Phone = "080-123-45"
	_, err := f.svc.Create(ctx, testSeller, in)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"phone": "Phone must contain only digits"}, verr.Fields)
	assert.Equal(t, 0, f.media.liveCount())

	created, err := f.svc.Create(ctx, testSeller, validProduct(1))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, testSeller.ID, created.ID, ProductUpdate{Phone: "08031234ab"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "phone")
}
