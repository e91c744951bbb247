package types

import "time"

// User represents a marketplace account. Every seller is a user.
type User struct {
	// ID is the opaque unique identifier of the user, assigned at creation.
	ID string `json:"id" db:"id"`

	// Email is the user's login address. It is unique across all users.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// NameOfVendor is the display name shown on the user's listings.
	NameOfVendor string `json:"nameofvendor" db:"nameofvendor"`

	Phone string `json:"phone,omitempty" db:"phone"`
	State string `json:"state,omitempty" db:"state"`
	Sex   string `json:"sex,omitempty" db:"sex"`

	// Avatar is the profile image stored on the media host.
	Avatar Image `json:"avatar" db:"avatar"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent profile update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Image references a file held by the media host.
type Image struct {
	// URL is the public address of the image.
	URL string `json:"url"`

	// ReferenceID identifies the image on the media host and is used to delete it.
	ReferenceID string `json:"reference_id"`
}

// IsZero reports whether the image is unset.
func (i Image) IsZero() bool {
	return i.URL == "" && i.ReferenceID == ""
}
