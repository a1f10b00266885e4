package types

import "time"

// Order statuses. The happy path is forward-only:
// Pending -> Processing -> Shipped -> Delivered. Cancellation is allowed
// from Pending and Processing only and is terminal.
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

// Payment statuses.
const (
	PaymentStatusPending   = "Pending"
	PaymentStatusPaid      = "Paid"
	PaymentStatusFailed    = "Failed"
	PaymentStatusRefunded  = "Refunded"
	PaymentStatusCancelled = "Cancelled"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCOD        = "COD"
	PaymentMethodCreditCard = "Credit Card"
	PaymentMethodDebitCard  = "Debit Card"
	PaymentMethodUPI        = "UPI"
	PaymentMethodNetBanking = "Net Banking"
)

// ValidOrderStatus reports whether status is a known order status.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether status is a known payment status.
func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether method is a known payment method.
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCOD, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodUPI, PaymentMethodNetBanking:
		return true
	}
	return false
}

// Order represents a placed order. It references the user that owns it and
// the cart snapshot it was materialized from, and captures the total price
// at creation time; the total is never recomputed afterwards.
type Order struct {
	// ID is the unique identifier of the order.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// CartID references the cart snapshot the order was placed from.
	CartID int `json:"cart_id" db:"cart_id"`

	// TotalPrice is the cart snapshot's total as computed at creation.
	TotalPrice float64 `json:"total_price" db:"total_price"`

	// Status is the fulfillment state of the order.
	Status string `json:"status" db:"status"`

	// PaymentMethod is the canonical payment method chosen at checkout.
	PaymentMethod string `json:"payment_method" db:"payment_method"`

	// PaymentStatus is the payment state of the order.
	PaymentStatus string `json:"payment_status" db:"payment_status"`

	// ShippingAddress is the free-text delivery address.
	ShippingAddress string `json:"shipping_address" db:"shipping_address"`

	// User carries the owner's public fields when the order is returned
	// populated. Omitted otherwise.
	User *UserSummary `json:"user,omitempty"`

	// Cart carries the full cart snapshot when the order is returned
	// populated. Omitted otherwise.
	Cart *Cart `json:"cart,omitempty"`

	// CreatedAt is the timestamp the order was placed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent status change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
