package types

import "time"

// Product is a listing put up for sale by a seller.
type Product struct {
	// ID is the opaque unique identifier of the listing.
	ID string `json:"id" db:"id"`

	// Category groups similar listings, e.g. "chair", "table", "cooker".
	Category string `json:"category" db:"category"`

	// Images are the listing photos stored on the media host. A listing
	// always carries at least one image.
	Images []Image `json:"images" db:"images"`

	Description  string  `json:"description" db:"description"`
	NameOfItem   string  `json:"nameofitem" db:"nameofitem"`
	NameOfVendor string  `json:"nameofvendor" db:"nameofvendor"`
	Color        string  `json:"color" db:"color"`
	Phone        string  `json:"phone" db:"phone"`
	Address      string  `json:"address" db:"address"`
	Price        float64 `json:"price" db:"price"`
	State        string  `json:"state" db:"state"`

	// Seller is a denormalized reference to the user who created the listing.
	Seller Seller `json:"seller" db:"seller"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Seller is the cached owner of a listing. Username is copied from the
// seller's display name at write time and is not kept in sync afterwards.
type Seller struct {
	ID       string `json:"id" db:"seller_id"`
	Username string `json:"username" db:"seller_username"`
}
