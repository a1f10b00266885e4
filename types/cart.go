package types

import "time"

// Cart is an immutable snapshot of the items a checkout was submitted
// with. A cart is created exactly once, inside order placement, and is
// never updated afterwards; the order it belongs to references it by ID.
type Cart struct {
	// ID is the unique identifier of the cart snapshot.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the user the snapshot was taken for.
	UserID int `json:"user_id" db:"user_id"`

	// Items is the ordered sequence of line items captured at checkout.
	// Non-empty for any cart referenced by an order.
	Items []CartItem `json:"items"`

	// TotalPrice is derived from Items on read and never stored.
	TotalPrice float64 `json:"total_price"`

	// CreatedAt is the timestamp the snapshot was taken.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartItem is one line of a cart snapshot: a product reference plus the
// quantity and unit price it was submitted with.
type CartItem struct {
	// ProductRef is the external identifier of the product as submitted
	// by the client at checkout.
	ProductRef string `json:"product" db:"product_ref"`

	// Name is the display name captured for the line item.
	Name string `json:"name,omitempty" db:"name"`

	// Image is an image reference captured for the line item.
	Image string `json:"image,omitempty" db:"image"`

	// Quantity is the number of units ordered. Always >= 1.
	Quantity int `json:"quantity" db:"quantity"`

	// Price is the unit price the line was submitted with. Always >= 0.
	Price float64 `json:"price" db:"price"`
}

// ComputeTotal sums quantity times unit price over the items.
func (c Cart) ComputeTotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += float64(item.Quantity) * item.Price
	}
	return total
}
