package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/diet-horizon/apiserver/internal/events"
	"github.com/diet-horizon/apiserver/types"
)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Create(ctx context.Context, order types.Order) (types.Order, error)
	Get(ctx context.Context, id int) (types.Order, error)
	ListByUser(ctx context.Context, userID int) ([]types.Order, error)
	ListAll(ctx context.Context) ([]types.Order, error)
	UpdateStatuses(ctx context.Context, id int, status, paymentStatus string) (types.Order, error)
}

// CartRepository defines persistence operations for cart snapshots.
type CartRepository interface {
	Create(ctx context.Context, cart types.Cart) (types.Cart, error)
	Get(ctx context.Context, id int) (types.Cart, error)
	GetMany(ctx context.Context, ids []int) (map[int]types.Cart, error)
}

// UserDirectory resolves user summaries for order population.
type UserDirectory interface {
	GetSummaries(ctx context.Context, ids []int) (map[int]types.UserSummary, error)
}

// EventPublisher publishes domain events. Implemented by *mq.MQ.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, payload any) (string, error)
}

// OrderService encapsulates the order/cart lifecycle: snapshot
// materialization at checkout, ownership checks, and the status state
// machine.
type OrderService struct {
	orders OrderRepository
	carts  CartRepository
	users  UserDirectory
	bus    EventPublisher
}

func NewOrderService(orders OrderRepository, carts CartRepository, users UserDirectory, bus EventPublisher) *OrderService {
	return &OrderService{orders: orders, carts: carts, users: users, bus: bus}
}

// PlaceOrderInput is the checkout payload.
type PlaceOrderInput struct {
	UserID          int
	Items           []types.CartItem
	PaymentMethod   string
	ShippingAddress string
}

// NormalizePaymentMethod maps informal spellings ("cod", "upi") onto the
// canonical payment-method enum.
func NormalizePaymentMethod(method string) (string, bool) {
	method = strings.TrimSpace(method)
	for _, canonical := range []string{
		types.PaymentMethodCOD,
		types.PaymentMethodCreditCard,
		types.PaymentMethodDebitCard,
		types.PaymentMethodUPI,
		types.PaymentMethodNetBanking,
	} {
		if strings.EqualFold(method, canonical) {
			return canonical, true
		}
	}
	return "", false
}

// Place materializes a cart snapshot from the submitted items and creates
// an order referencing it. Item prices are taken as submitted.
func (s *OrderService) Place(ctx context.Context, in PlaceOrderInput) (types.Order, error) {
	if len(in.Items) == 0 {
		return types.Order{}, ErrEmptyCart
	}
	for _, item := range in.Items {
		if strings.TrimSpace(item.ProductRef) == "" || item.Quantity < 1 || item.Price < 0 {
			return types.Order{}, ErrInvalidItem
		}
	}

	method, ok := NormalizePaymentMethod(in.PaymentMethod)
	if !ok {
		return types.Order{}, ErrInvalidPaymentMethod
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return types.Order{}, ErrMissingFields
	}

	cart, err := s.carts.Create(ctx, types.Cart{UserID: in.UserID, Items: in.Items})
	if err != nil {
		return types.Order{}, err
	}
	if len(cart.Items) == 0 {
		return types.Order{}, ErrEmptyCart
	}

	order, err := s.orders.Create(ctx, types.Order{
		UserID:          in.UserID,
		CartID:          cart.ID,
		TotalPrice:      cart.TotalPrice,
		Status:          types.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   types.PaymentStatusPending,
		ShippingAddress: in.ShippingAddress,
	})
	if err != nil {
		return types.Order{}, err
	}

	populated := []types.Order{order}
	if err := s.populate(ctx, populated); err != nil {
		return types.Order{}, err
	}
	order = populated[0]

	s.publish(ctx, events.OrderPlaced, order)
	return order, nil
}

// MyOrders returns the user's orders, newest first, with carts attached.
func (s *OrderService) MyOrders(ctx context.Context, userID int) ([]types.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get returns a single order if the requester owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, requesterID int, role string, orderID int) (types.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}
	if order.UserID != requesterID && role != types.RoleAdmin {
		return types.Order{}, ErrForbidden
	}

	populated := []types.Order{order}
	if err := s.populate(ctx, populated); err != nil {
		return types.Order{}, err
	}
	return populated[0], nil
}

// Cancel moves the order to Cancelled if it is still Pending or
// Processing. A Paid order's payment status becomes Refunded, an unpaid
// one becomes Cancelled.
func (s *OrderService) Cancel(ctx context.Context, requesterID int, role string, orderID int) (types.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}
	if order.UserID != requesterID && role != types.RoleAdmin {
		return types.Order{}, ErrForbidden
	}
	if order.Status != types.OrderStatusPending && order.Status != types.OrderStatusProcessing {
		return types.Order{}, ErrCannotCancel
	}

	paymentStatus := types.PaymentStatusCancelled
	if order.PaymentStatus == types.PaymentStatusPaid {
		paymentStatus = types.PaymentStatusRefunded
	}

	updated, err := s.orders.UpdateStatuses(ctx, order.ID, types.OrderStatusCancelled, paymentStatus)
	if err != nil {
		return types.Order{}, err
	}

	populated := []types.Order{updated}
	if err := s.populate(ctx, populated); err != nil {
		return types.Order{}, err
	}
	updated = populated[0]

	s.publish(ctx, events.OrderCancelled, updated)
	return updated, nil
}

// All returns every order, newest first, populated. Admin-only; role
// gating happens in the handler layer.
func (s *OrderService) All(ctx context.Context) ([]types.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatuses applies the supplied status and/or payment status. Each
// value must be a member of its enum and reachable from the current state;
// supplying a field's current value is a no-op for that field.
func (s *OrderService) UpdateStatuses(ctx context.Context, orderID int, status, paymentStatus string) (types.Order, error) {
	if status == "" && paymentStatus == "" {
		return types.Order{}, ErrNoStatusFields
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}

	nextStatus := order.Status
	if status != "" {
		if !types.ValidOrderStatus(status) {
			return types.Order{}, ErrInvalidStatus
		}
		if status != order.Status {
			if !statusTransitionAllowed(order.Status, status) {
				return types.Order{}, ErrInvalidTransition
			}
			nextStatus = status
		}
	}

	nextPayment := order.PaymentStatus
	if paymentStatus != "" {
		if !types.ValidPaymentStatus(paymentStatus) {
			return types.Order{}, ErrInvalidStatus
		}
		if paymentStatus != order.PaymentStatus {
			if !paymentTransitionAllowed(order.PaymentStatus, paymentStatus) {
				return types.Order{}, ErrInvalidTransition
			}
			nextPayment = paymentStatus
		}
	}

	updated, err := s.orders.UpdateStatuses(ctx, order.ID, nextStatus, nextPayment)
	if err != nil {
		return types.Order{}, err
	}

	populated := []types.Order{updated}
	if err := s.populate(ctx, populated); err != nil {
		return types.Order{}, err
	}
	updated = populated[0]

	s.publish(ctx, events.OrderStatusChanged, updated)
	return updated, nil
}

// statusTransitionAllowed encodes the forward-only fulfillment path plus
// cancellation from Pending/Processing.
func statusTransitionAllowed(from, to string) bool {
	switch from {
	case types.OrderStatusPending:
		return to == types.OrderStatusProcessing || to == types.OrderStatusCancelled
	case types.OrderStatusProcessing:
		return to == types.OrderStatusShipped || to == types.OrderStatusCancelled
	case types.OrderStatusShipped:
		return to == types.OrderStatusDelivered
	}
	return false
}

func paymentTransitionAllowed(from, to string) bool {
	switch from {
	case types.PaymentStatusPending:
		return to == types.PaymentStatusPaid || to == types.PaymentStatusFailed || to == types.PaymentStatusCancelled
	case types.PaymentStatusFailed:
		return to == types.PaymentStatusPaid || to == types.PaymentStatusCancelled
	case types.PaymentStatusPaid:
		return to == types.PaymentStatusRefunded
	}
	return false
}

// populate attaches user summaries and cart snapshots to orders.
func (s *OrderService) populate(ctx context.Context, orders []types.Order) error {
	if len(orders) == 0 {
		return nil
	}

	cartIDs := make([]int, 0, len(orders))
	userIDs := make([]int, 0, len(orders))
	for _, order := range orders {
		cartIDs = append(cartIDs, order.CartID)
		userIDs = append(userIDs, order.UserID)
	}

	carts, err := s.carts.GetMany(ctx, cartIDs)
	if err != nil {
		return err
	}
	summaries, err := s.users.GetSummaries(ctx, userIDs)
	if err != nil {
		return err
	}

	for i := range orders {
		if cart, ok := carts[orders[i].CartID]; ok {
			c := cart
			orders[i].Cart = &c
		}
		if summary, ok := summaries[orders[i].UserID]; ok {
			u := summary
			orders[i].User = &u
		}
	}
	return nil
}

// publish sends an order event; failures are logged, never surfaced. The
// store remains the source of truth.
func (s *OrderService) publish(ctx context.Context, channel string, order types.Order) {
	if s.bus == nil {
		return
	}
	event := events.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalPrice:    order.TotalPrice,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		OccurredAt:    time.Now(),
	}
	if _, err := s.bus.PublishJSON(ctx, channel, event); err != nil {
		log.Printf("mq: publish %s failed: %v", channel, err)
	}
}
