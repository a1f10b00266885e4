package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diet-horizon/apiserver/internal/services"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

const testSecret = "test-secret"

type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error) {
	for _, user := range r.users {
		if user.ResetTokenHash == tokenHash && user.ResetTokenExpires.After(now) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, id int, name, email string) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for otherID, other := range r.users {
		if otherID != id && strings.EqualFold(other.Email, email) {
			return types.User{}, store.ErrConflict
		}
	}
	user.Name = name
	user.Email = email
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetTokenHash = ""
	user.ResetTokenExpires = time.Time{}
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) SetResetToken(ctx context.Context, id int, tokenHash string, expires time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.ResetTokenHash = tokenHash
	user.ResetTokenExpires = expires
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id int, role string) (types.User, error) {
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Role = role
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	var users []types.User
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, len(users), nil
}

func (r *fakeUserRepo) GetSummaries(ctx context.Context, ids []int) (map[int]types.UserSummary, error) {
	result := make(map[int]types.UserSummary, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			result[id] = user.Summary()
		}
	}
	return result, nil
}

func newAuthServer(t *testing.T) (*httptest.Server, *fakeUserRepo) {
	t.Helper()

	repo := newFakeUserRepo()
	userService := services.NewUserService(repo)
	handler := NewAuthHandler(userService, nil, testSecret, time.Hour, 15*time.Minute)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, handler)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, repo
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, "", payload)
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var parsed T
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return parsed
}

func registerTestUser(t *testing.T, baseURL, email string) AuthResponse {
	t.Helper()

	resp := postJSON(t, baseURL+"/auth/register", RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: "secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	return decodeBody[AuthResponse](t, resp)
}

func TestRegister(t *testing.T) {
	srv, _ := newAuthServer(t)

	parsed := registerTestUser(t, srv.URL, "new@example.com")
	if !parsed.Success || parsed.Token == "" {
		t.Fatalf("unexpected register response: %+v", parsed)
	}
	if parsed.User.Role != types.RoleUser {
		t.Errorf("default role = %q, want %q", parsed.User.Role, types.RoleUser)
	}
	if parsed.User.ID == 0 {
		t.Errorf("expected user ID to be set")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, _ := newAuthServer(t)

	registerTestUser(t, srv.URL, "dup@example.com")
	resp := postJSON(t, srv.URL+"/auth/register", RegisterRequest{
		Name:     "Other",
		Email:    "dup@example.com",
		Password: "secret123",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", resp.StatusCode)
	}
	parsed := decodeBody[ErrorResponse](t, resp)
	if parsed.Success {
		t.Errorf("expected success=false")
	}
	if parsed.Message != "email already registered" {
		t.Errorf("message = %q", parsed.Message)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/auth/register", RegisterRequest{Email: "x@example.com"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/auth/register", RegisterRequest{
		Name:     "Test",
		Email:    "x@example.com",
		Password: "secret123",
		Role:     "superadmin",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPasswordNeverSerialized(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/auth/register", RegisterRequest{
		Name:     "Test User",
		Email:    "hidden@example.com",
		Password: "secret123",
	})
	defer resp.Body.Close()

	var raw bytes.Buffer
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := raw.String()
	if strings.Contains(body, "password") || strings.Contains(body, "secret123") {
		t.Fatalf("response leaks password material: %s", body)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newAuthServer(t)
	registerTestUser(t, srv.URL, "login@example.com")

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "login@example.com", Password: "secret123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	parsed := decodeBody[AuthResponse](t, resp)
	if parsed.Token == "" {
		t.Fatalf("expected token in login response")
	}
}

func TestLoginBadPassword(t *testing.T) {
	srv, _ := newAuthServer(t)
	registerTestUser(t, srv.URL, "login@example.com")

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "login@example.com", Password: "wrong"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMe(t *testing.T) {
	srv, _ := newAuthServer(t)
	registered := registerTestUser(t, srv.URL, "me@example.com")

	resp := doJSON(t, http.MethodGet, srv.URL+"/auth/me", registered.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	parsed := decodeBody[UserResponse](t, resp)
	if parsed.User.Email != "me@example.com" {
		t.Errorf("email = %q", parsed.User.Email)
	}
}

func TestMeRejectsBadToken(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/auth/me", "not-a-token", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMeAcceptsCookie(t *testing.T) {
	srv, _ := newAuthServer(t)
	registered := registerTestUser(t, srv.URL, "cookie@example.com")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: "token", Value: registered.Token})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	srv, _ := newAuthServer(t)
	registerTestUser(t, srv.URL, "reset@example.com")

	resp := postJSON(t, srv.URL+"/auth/forgot-password", ForgotPasswordRequest{Email: "reset@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forgot status = %d, want 200", resp.StatusCode)
	}
	forgot := decodeBody[ResetTokenResponse](t, resp)
	if forgot.ResetToken == "" {
		t.Fatalf("expected reset token in response")
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password/%s", srv.URL, forgot.ResetToken)
	resp = doJSON(t, http.MethodPut, resetURL, "", ResetPasswordRequest{Password: "newpass456"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", resp.StatusCode)
	}
	reset := decodeBody[AuthResponse](t, resp)
	if reset.Token == "" {
		t.Fatalf("expected session token after reset")
	}

	// Old password no longer works, new one does.
	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "reset@example.com", Password: "secret123"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password login status = %d, want 401", resp.StatusCode)
	}
	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "reset@example.com", Password: "newpass456"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new password login status = %d, want 200", resp.StatusCode)
	}

	// The reset token is single-use.
	resp = doJSON(t, http.MethodPut, resetURL, "", ResetPasswordRequest{Password: "again789"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reused token status = %d, want 400", resp.StatusCode)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := postJSON(t, srv.URL+"/auth/forgot-password", ForgotPasswordRequest{Email: "ghost@example.com"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestResetPasswordBadToken(t *testing.T) {
	srv, _ := newAuthServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/auth/reset-password/bogus", "", ResetPasswordRequest{Password: "whatever1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdatePassword(t *testing.T) {
	srv, _ := newAuthServer(t)
	registered := registerTestUser(t, srv.URL, "change@example.com")

	resp := doJSON(t, http.MethodPut, srv.URL+"/auth/update-password", registered.Token, UpdatePasswordRequest{
		CurrentPassword: "secret123",
		NewPassword:     "changed456",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update-password status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/auth/login", LoginRequest{Email: "change@example.com", Password: "changed456"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password status = %d, want 200", resp.StatusCode)
	}
}

func TestUpdatePasswordWrongCurrent(t *testing.T) {
	srv, _ := newAuthServer(t)
	registered := registerTestUser(t, srv.URL, "change@example.com")

	resp := doJSON(t, http.MethodPut, srv.URL+"/auth/update-password", registered.Token, UpdatePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "changed456",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUpdateDetails(t *testing.T) {
	srv, _ := newAuthServer(t)
	registered := registerTestUser(t, srv.URL, "details@example.com")

	resp := doJSON(t, http.MethodPut, srv.URL+"/auth/update-details", registered.Token, UpdateDetailsRequest{
		Name: "Renamed User",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update-details status = %d, want 200", resp.StatusCode)
	}
	parsed := decodeBody[UserResponse](t, resp)
	if parsed.User.Name != "Renamed User" {
		t.Errorf("name = %q", parsed.User.Name)
	}
	if parsed.User.Email != "details@example.com" {
		t.Errorf("blank email should keep current, got %q", parsed.User.Email)
	}
}

func TestUpdateDetailsEmailConflict(t *testing.T) {
	srv, _ := newAuthServer(t)
	registerTestUser(t, srv.URL, "first@example.com")
	second := registerTestUser(t, srv.URL, "second@example.com")

	resp := doJSON(t, http.MethodPut, srv.URL+"/auth/update-details", second.Token, UpdateDetailsRequest{
		Email: "first@example.com",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	srv, _ := newAuthServer(t)
	registered := registerTestUser(t, srv.URL, "logout@example.com")

	resp := doJSON(t, http.MethodGet, srv.URL+"/auth/logout", registered.Token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	var cleared bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "token" && cookie.Value == "" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected token cookie to be cleared")
	}
}
