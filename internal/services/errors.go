package services

import "errors"

// Sentinel errors the handler layer translates into HTTP failures.
// Persistence-level failures surface as store.ErrNotFound / store.ErrConflict.
var (
	// ErrForbidden is returned when an authenticated caller is neither the
	// owner of the resource nor allowed to act across users.
	ErrForbidden = errors.New("not authorized to access this resource")

	// ErrMissingFields is returned when a required request field is absent.
	ErrMissingFields = errors.New("missing required fields")

	// ErrEmptyCart is returned when an order is placed with no line items.
	ErrEmptyCart = errors.New("cannot place order with empty cart")

	// ErrInvalidItem is returned when a submitted line item has a missing
	// product reference, a quantity below 1, or a negative price.
	ErrInvalidItem = errors.New("invalid order item")

	// ErrInvalidPaymentMethod is returned for a payment method outside the
	// accepted set.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidStatus is returned for a status value outside its enum.
	ErrInvalidStatus = errors.New("invalid status value")

	// ErrInvalidRole is returned for a role outside the accepted set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidTransition is returned when both values are valid enum
	// members but the requested state change is not permitted.
	ErrInvalidTransition = errors.New("illegal status transition")

	// ErrCannotCancel is returned when cancellation is requested for an
	// order that is no longer Pending or Processing.
	ErrCannotCancel = errors.New("order cannot be cancelled in its current state")

	// ErrNoStatusFields is returned when a status update supplies neither
	// status nor payment status.
	ErrNoStatusFields = errors.New("provide at least status or payment status")
)
