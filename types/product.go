package types

import "time"

// Product is a catalog entry users can browse and order.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// Name is the display name of the product.
	Name string `json:"name" db:"name"`

	// Description is the free-text product description.
	Description string `json:"description" db:"description"`

	// Price is the unit price. Always >= 0.
	Price float64 `json:"price" db:"price"`

	// Category is a free-form catalog category label.
	Category string `json:"category" db:"category"`

	// Stock is the number of units available. Always >= 0.
	Stock int `json:"stock" db:"stock"`

	// ImageKey is the object-storage key of the product image, empty when
	// no image has been uploaded.
	ImageKey string `json:"image_key,omitempty" db:"image_key"`

	// CreatedAt is the timestamp the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
