// Package events defines the domain events the API server publishes to the
// message broker. Payloads are JSON; the event name doubles as the broker
// channel (queue or topic) name.
package events

import "time"

// Channel names.
const (
	OrderPlaced            = "order.placed"
	OrderCancelled         = "order.cancelled"
	OrderStatusChanged     = "order.status_changed"
	PasswordResetRequested = "user.password_reset_requested"
)

// OrderEvent is published when an order is placed, cancelled, or has its
// statuses changed by an admin.
type OrderEvent struct {
	OrderID       int       `json:"order_id"`
	UserID        int       `json:"user_id"`
	TotalPrice    float64   `json:"total_price"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PasswordResetEvent carries the raw reset token to a notification worker.
// The API stores only the token's hash.
type PasswordResetEvent struct {
	UserID     int       `json:"user_id"`
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
