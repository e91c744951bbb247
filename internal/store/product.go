package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iheejigoro/apiserver/types"
)

const productColumns = `id, category, images, description, nameofitem, nameofvendor, color, phone, address, price, state, seller_id, seller_username, created_at, updated_at`

// ProductRepository handles persistence for product listings.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM products`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]types.Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (types.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Product{}, ErrNotFound
	}

	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now

	imagesJSON, err := json.Marshal(product.Images)
	if err != nil {
		return types.Product{}, err
	}

	const query = `
		INSERT INTO products (id, category, images, description, nameofitem, nameofvendor, color, phone, address, price, state, seller_id, seller_username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Category,
		imagesJSON,
		product.Description,
		product.NameOfItem,
		product.NameOfVendor,
		product.Color,
		product.Phone,
		product.Address,
		product.Price,
		product.State,
		product.Seller.ID,
		product.Seller.Username,
		product.CreatedAt,
		product.UpdatedAt,
	); err != nil {
		return types.Product{}, err
	}

	return product, nil
}

// Update overwrites every mutable column of product. The seller and the
// creation time are fixed at creation.
func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	product.UpdatedAt = time.Now().UTC()

	imagesJSON, err := json.Marshal(product.Images)
	if err != nil {
		return types.Product{}, err
	}

	const query = `
		UPDATE products
		SET category = $1,
			images = $2,
			description = $3,
			nameofitem = $4,
			nameofvendor = $5,
			color = $6,
			phone = $7,
			address = $8,
			price = $9,
			state = $10,
			updated_at = $11
		WHERE id = $12`
	result, err := r.db.ExecContext(
		ctx,
		query,
		product.Category,
		imagesJSON,
		product.Description,
		product.NameOfItem,
		product.NameOfVendor,
		product.Color,
		product.Phone,
		product.Address,
		product.Price,
		product.State,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return types.Product{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Product{}, err
	}
	if affected == 0 {
		return types.Product{}, ErrNotFound
	}

	return product, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	const query = `DELETE FROM products WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (types.Product, error) {
	var product types.Product
	var imagesJSON []byte
	if err := row.Scan(
		&product.ID,
		&product.Category,
		&imagesJSON,
		&product.Description,
		&product.NameOfItem,
		&product.NameOfVendor,
		&product.Color,
		&product.Phone,
		&product.Address,
		&product.Price,
		&product.State,
		&product.Seller.ID,
		&product.Seller.Username,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return types.Product{}, err
	}

	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &product.Images); err != nil {
			return types.Product{}, fmt.Errorf("decode images of product %s: %w", product.ID, err)
		}
	}
	return product, nil
}
