package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diet-horizon/apiserver/internal/services"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

type memOrderRepo struct {
	orders map[int]types.Order
	nextID int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int]types.Order), nextID: 1}
}

func (r *memOrderRepo) Create(ctx context.Context, order types.Order) (types.Order, error) {
	order.ID = r.nextID
	r.nextID++
	r.orders[order.ID] = order
	return order, nil
}

func (r *memOrderRepo) Get(ctx context.Context, id int) (types.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (r *memOrderRepo) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	var result []types.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (r *memOrderRepo) ListAll(ctx context.Context) ([]types.Order, error) {
	var result []types.Order
	for _, order := range r.orders {
		result = append(result, order)
	}
	return result, nil
}

func (r *memOrderRepo) UpdateStatuses(ctx context.Context, id int, status, paymentStatus string) (types.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	order.Status = status
	order.PaymentStatus = paymentStatus
	r.orders[id] = order
	return order, nil
}

type memCartRepo struct {
	carts  map[int]types.Cart
	nextID int
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[int]types.Cart), nextID: 1}
}

func (r *memCartRepo) Create(ctx context.Context, cart types.Cart) (types.Cart, error) {
	cart.ID = r.nextID
	r.nextID++
	cart.TotalPrice = cart.ComputeTotal()
	r.carts[cart.ID] = cart
	return cart, nil
}

func (r *memCartRepo) Get(ctx context.Context, id int) (types.Cart, error) {
	cart, ok := r.carts[id]
	if !ok {
		return types.Cart{}, store.ErrNotFound
	}
	return cart, nil
}

func (r *memCartRepo) GetMany(ctx context.Context, ids []int) (map[int]types.Cart, error) {
	result := make(map[int]types.Cart, len(ids))
	for _, id := range ids {
		if cart, ok := r.carts[id]; ok {
			result[id] = cart
		}
	}
	return result, nil
}

type orderTestEnv struct {
	server   *httptest.Server
	users    *fakeUserRepo
	orders   *memOrderRepo
	ownerTok string
	otherTok string
	adminTok string
	ownerID  int
	otherID  int
	adminID  int
}

func newOrderServer(t *testing.T) *orderTestEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	userService := services.NewUserService(userRepo)
	orderRepo := newMemOrderRepo()
	cartRepo := newMemCartRepo()
	orderService := services.NewOrderService(orderRepo, cartRepo, userRepo, nil)

	authMiddleware := RequireAuth(testSecret)
	adminOnly := RequireRole(userService, types.RoleAdmin)

	router := chi.NewRouter()
	router.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		OrderRouter(r, orderService)
	})
	router.Route("/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware, adminOnly)
		AdminOrderRouter(r, orderService)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	env := &orderTestEnv{server: srv, users: userRepo, orders: orderRepo}
	env.ownerID, env.ownerTok = seedUser(t, userRepo, "owner@example.com", types.RoleUser)
	env.otherID, env.otherTok = seedUser(t, userRepo, "other@example.com", types.RoleUser)
	env.adminID, env.adminTok = seedUser(t, userRepo, "admin@example.com", types.RoleAdmin)
	return env
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, role string) (int, string) {
	t.Helper()

	user, err := repo.Create(context.Background(), types.User{
		Name:         "Test " + role,
		Email:        email,
		Role:         role,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := issueToken(user, []byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user.ID, token
}

func placeOrderPayload() PlaceOrderRequest {
	return PlaceOrderRequest{
		Items: []types.CartItem{
			{ProductRef: "whey-1kg", Name: "Whey Protein", Quantity: 2, Price: 50},
			{ProductRef: "oats-500g", Name: "Oats", Quantity: 1, Price: 100},
		},
		PaymentMethod:   "cod",
		ShippingAddress: "42 Main St",
	}
}

func (env *orderTestEnv) placeOrder(t *testing.T) OrderResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, env.server.URL+"/orders", env.ownerTok, placeOrderPayload())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place order status = %d, want 201", resp.StatusCode)
	}
	return decodeBody[OrderResponse](t, resp)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	env := newOrderServer(t)

	placed := env.placeOrder(t)
	if placed.Data.TotalPrice != 200 {
		t.Errorf("total = %v, want 200", placed.Data.TotalPrice)
	}
	if placed.Data.Status != types.OrderStatusPending {
		t.Errorf("status = %q, want Pending", placed.Data.Status)
	}
	if placed.Data.Cart == nil || len(placed.Data.Cart.Items) != 2 {
		t.Errorf("expected populated cart, got %+v", placed.Data.Cart)
	}
}

func TestPlaceOrderRequiresAuth(t *testing.T) {
	env := newOrderServer(t)

	resp := doJSON(t, http.MethodPost, env.server.URL+"/orders", "", placeOrderPayload())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestPlaceOrderEmptyItems(t *testing.T) {
	env := newOrderServer(t)

	payload := placeOrderPayload()
	payload.Items = nil
	resp := doJSON(t, http.MethodPost, env.server.URL+"/orders", env.ownerTok, payload)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetOrderCrossUserForbidden(t *testing.T) {
	env := newOrderServer(t)
	placed := env.placeOrder(t)

	url := fmt.Sprintf("%s/orders/%d", env.server.URL, placed.Data.ID)

	resp := doJSON(t, http.MethodGet, url, env.otherTok, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger status = %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, url, env.ownerTok, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, url, env.adminTok, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", resp.StatusCode)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	env := newOrderServer(t)

	resp := doJSON(t, http.MethodGet, env.server.URL+"/orders/999", env.ownerTok, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCancelOrderEndpoint(t *testing.T) {
	env := newOrderServer(t)
	placed := env.placeOrder(t)

	url := fmt.Sprintf("%s/orders/%d/cancel", env.server.URL, placed.Data.ID)
	resp := doJSON(t, http.MethodPut, url, env.ownerTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	cancelled := decodeBody[OrderResponse](t, resp)
	if cancelled.Data.Status != types.OrderStatusCancelled {
		t.Errorf("status = %q, want Cancelled", cancelled.Data.Status)
	}
}

func TestCancelShippedOrderRejectedOverHTTP(t *testing.T) {
	env := newOrderServer(t)
	placed := env.placeOrder(t)

	if _, err := env.orders.UpdateStatuses(context.Background(), placed.Data.ID, types.OrderStatusShipped, types.PaymentStatusPaid); err != nil {
		t.Fatalf("seed shipped status: %v", err)
	}

	url := fmt.Sprintf("%s/orders/%d/cancel", env.server.URL, placed.Data.ID)
	resp := doJSON(t, http.MethodPut, url, env.ownerTok, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	parsed := decodeBody[ErrorResponse](t, resp)
	if parsed.Success {
		t.Errorf("expected success=false")
	}
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	env := newOrderServer(t)

	resp := doJSON(t, http.MethodGet, env.server.URL+"/admin/orders", env.ownerTok, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestAdminListOrders(t *testing.T) {
	env := newOrderServer(t)
	env.placeOrder(t)

	resp := doJSON(t, http.MethodGet, env.server.URL+"/admin/orders", env.adminTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	parsed := decodeBody[OrderListResponse](t, resp)
	if parsed.Count != 1 || len(parsed.Data) != 1 {
		t.Fatalf("count = %d, data = %d, want 1 order", parsed.Count, len(parsed.Data))
	}
}

func TestAdminUpdateStatuses(t *testing.T) {
	env := newOrderServer(t)
	placed := env.placeOrder(t)

	url := fmt.Sprintf("%s/admin/orders/%d", env.server.URL, placed.Data.ID)
	resp := doJSON(t, http.MethodPut, url, env.adminTok, UpdateOrderStatusRequest{
		Status:        types.OrderStatusProcessing,
		PaymentStatus: types.PaymentStatusPaid,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	updated := decodeBody[OrderResponse](t, resp)
	if updated.Data.Status != types.OrderStatusProcessing {
		t.Errorf("status = %q, want Processing", updated.Data.Status)
	}
	if updated.Data.PaymentStatus != types.PaymentStatusPaid {
		t.Errorf("payment status = %q, want Paid", updated.Data.PaymentStatus)
	}
}

func TestAdminUpdateStatusesInvalidTransition(t *testing.T) {
	env := newOrderServer(t)
	placed := env.placeOrder(t)

	url := fmt.Sprintf("%s/admin/orders/%d", env.server.URL, placed.Data.ID)
	resp := doJSON(t, http.MethodPut, url, env.adminTok, UpdateOrderStatusRequest{
		Status: types.OrderStatusDelivered,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAdminUpdateStatusesEmptyBody(t *testing.T) {
	env := newOrderServer(t)
	placed := env.placeOrder(t)

	url := fmt.Sprintf("%s/admin/orders/%d", env.server.URL, placed.Data.ID)
	resp := doJSON(t, http.MethodPut, url, env.adminTok, UpdateOrderStatusRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMyOrdersScopedToCaller(t *testing.T) {
	env := newOrderServer(t)
	env.placeOrder(t)

	resp := doJSON(t, http.MethodGet, env.server.URL+"/orders", env.otherTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	parsed := decodeBody[OrderListResponse](t, resp)
	if parsed.Count != 0 {
		t.Fatalf("stranger sees %d orders, want 0", parsed.Count)
	}
}
