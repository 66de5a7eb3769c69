package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

type stubRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (s *stubRevoker) Revoke(_ context.Context, id string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked == nil {
		s.revoked = map[string]bool{}
	}
	s.revoked[id] = true
	return nil
}

func (s *stubRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[id], nil
}

func captureHandler(captured **auth.UserContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Authenticate_WithAPIKey(t *testing.T) {
	m := auth.NewMiddleware(newTokenManager(), nil, "test-api-key-12345", zap.NewNop())

	var captured *auth.UserContext
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("x-api-key", "test-api-key-12345")
	w := httptest.NewRecorder()

	m.Authenticate(captureHandler(&captured)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "System", captured.DisplayName)
	assert.Equal(t, domain.RoleAdministrator, captured.Role)
	assert.Equal(t, auth.AuthTypeAPIKey, captured.AuthType)
}

func TestMiddleware_Authenticate_WithInvalidAPIKey(t *testing.T) {
	m := auth.NewMiddleware(newTokenManager(), nil, "correct-key", zap.NewNop())

	var captured *auth.UserContext
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("x-api-key", "wrong-key")
	w := httptest.NewRecorder()

	m.Authenticate(captureHandler(&captured)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, captured)
}

func TestMiddleware_Authenticate_Bearer(t *testing.T) {
	tm := newTokenManager()
	revoker := &stubRevoker{}
	m := auth.NewMiddleware(tm, revoker, "", zap.NewNop())
	user := testUser(domain.RoleCustomer)

	token, claims, err := tm.Issue(user)
	require.NoError(t, err)

	var captured *auth.UserContext
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	m.Authenticate(captureHandler(&captured)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, user.ID, captured.UserID)

	// Once revoked the same token is rejected
	require.NoError(t, revoker.Revoke(context.Background(), claims.ID, time.Hour))
	captured = nil
	w = httptest.NewRecorder()
	m.Authenticate(captureHandler(&captured)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, captured)
}

func TestMiddleware_Authenticate_MissingHeader(t *testing.T) {
	m := auth.NewMiddleware(newTokenManager(), nil, "", zap.NewNop())

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		var captured *auth.UserContext
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		m.Authenticate(captureHandler(&captured)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestMiddleware_OptionalAuthenticate(t *testing.T) {
	tm := newTokenManager()
	m := auth.NewMiddleware(tm, nil, "", zap.NewNop())

	var captured *auth.UserContext
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	m.OptionalAuthenticate(captureHandler(&captured)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, captured)
}

func TestMiddleware_RequireAction(t *testing.T) {
	m := auth.NewMiddleware(newTokenManager(), nil, "", zap.NewNop())
	handler := m.RequireAction(auth.ActionManageCatalog)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		role domain.UserRole
		want int
	}{
		{domain.RoleEmployee, http.StatusOK},
		{domain.RoleCustomer, http.StatusForbidden},
		{domain.RoleAdministrator, http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{Role: tt.role}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, tt.role)
	}

	// No principal at all
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddleware_RequireRole(t *testing.T) {
	m := auth.NewMiddleware(newTokenManager(), nil, "", zap.NewNop())
	handler := m.RequireRole(domain.RoleEmployee)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for role, want := range map[domain.UserRole]int{
		domain.RoleEmployee:      http.StatusOK,
		domain.RoleAdministrator: http.StatusForbidden,
		domain.RoleCustomer:      http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{Role: role}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}
