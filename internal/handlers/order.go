package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diet-horizon/apiserver/internal/services"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

// OrderHandler provides HTTP handlers for the order lifecycle.
type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// OrderRouter registers the user-facing order routes. The router is
// expected to already carry the auth middleware.
func OrderRouter(r chi.Router, orderService *services.OrderService) {
	handler := NewOrderHandler(orderService)

	r.Post("/", handler.PlaceOrder)
	r.Get("/", handler.MyOrders)
	r.Route("/{orderID}", func(r chi.Router) {
		r.Get("/", handler.GetOrder)
		r.Put("/cancel", handler.CancelOrder)
	})
}

// AdminOrderRouter registers the admin order routes. The router is
// expected to already carry auth plus the admin role check.
func AdminOrderRouter(r chi.Router, orderService *services.OrderService) {
	handler := NewOrderHandler(orderService)

	r.Get("/", handler.AllOrders)
	r.Put("/{orderID}", handler.UpdateOrderStatus)
}

// PlaceOrder materializes a cart snapshot from the submitted items and
// creates a Pending order from it.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	order, err := h.orderService.Place(r.Context(), services.PlaceOrderInput{
		UserID:          userID,
		Items:           req.Items,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, OrderResponse{
		Success: true,
		Message: "order placed successfully",
		Data:    order,
	})
}

// MyOrders returns the caller's orders, newest first.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.MyOrders(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, OrderListResponse{Success: true, Count: len(orders), Data: orders})
}

// GetOrder returns a single order to its owner or an admin.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.Get(r.Context(), userID, roleFromContext(r.Context()), orderID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to fetch order")
		}
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{Success: true, Data: order})
}

// CancelOrder cancels a Pending or Processing order.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.Cancel(r.Context(), userID, roleFromContext(r.Context()), orderID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, services.ErrCannotCancel):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel order")
		}
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		Success: true,
		Message: "order cancelled successfully",
		Data:    order,
	})
}

// AllOrders returns every order. Admin-only.
func (h *OrderHandler) AllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, OrderListResponse{Success: true, Count: len(orders), Data: orders})
}

// UpdateOrderStatus applies status and/or payment-status changes.
// Admin-only.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	order, err := h.orderService.UpdateStatuses(r.Context(), orderID, req.Status, req.PaymentStatus)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		Success: true,
		Message: "order status updated successfully",
		Data:    order,
	})
}

type PlaceOrderRequest struct {
	Items           []types.CartItem `json:"items"`
	PaymentMethod   string           `json:"paymentMethod"`
	ShippingAddress string           `json:"shippingAddress"`
}

type UpdateOrderStatusRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
}

type OrderResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    types.Order `json:"data"`
}

type OrderListResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Data    []types.Order `json:"data"`
}

func parseOrderID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid order id")
	}
	return id, nil
}

// isValidationError reports whether err belongs to the 400 family of
// service errors.
func isValidationError(err error) bool {
	for _, candidate := range []error{
		services.ErrEmptyCart,
		services.ErrInvalidItem,
		services.ErrInvalidPaymentMethod,
		services.ErrInvalidStatus,
		services.ErrInvalidTransition,
		services.ErrInvalidRole,
		services.ErrMissingFields,
		services.ErrNoStatusFields,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
