package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/http/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, remoteAddr, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           false,
		RequestsPerMinute: 2,
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "192.168.1.1:1234", "/test").Code)
	}
}

func TestRateLimiter_LimitByIP(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1000", "/test").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:1001", "/test").Code)

	w := doRequest(h, "10.0.0.1:1002", "/test")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeRateLimited, apiErr.Type)

	// Another client keeps its own budget
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.2:1000", "/test").Code)
}

func TestRateLimiter_Whitelists(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
		WhitelistIPs:      []string{"127.0.0.1"},
		WhitelistPaths:    []string{"/health", "/swagger/*"},
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "127.0.0.1:5000", "/test").Code)
		assert.Equal(t, http.StatusOK, doRequest(h, "10.1.1.1:5000", "/health").Code)
		assert.Equal(t, http.StatusOK, doRequest(h, "10.1.1.1:5000", "/swagger/index.html").Code)
	}
}

func TestRateLimiter_LimitUsesUserBudget(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     1,
		RequestsPerMinuteAuth: 3,
	}, zap.NewNop())
	h := rl.Limit(okHandler())

	userCtx := &auth.UserContext{UserID: uuid.New(), Role: domain.RoleCustomer}
	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.RemoteAddr = "10.2.2.2:1000"
		req = req.WithContext(auth.WithUserContext(req.Context(), userCtx))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	// Anonymous requests from the same address use the IP budget
	assert.Equal(t, http.StatusOK, doRequest(h, "10.2.2.2:1000", "/api/v1/products").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.2.2.2:1000", "/api/v1/products").Code)
}

func TestRateLimiter_LimitCredentials(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:                      true,
		RequestsPerMinute:            100,
		RequestsPerMinuteCredentials: 2,
	}, zap.NewNop())
	h := rl.LimitCredentials(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(h, "10.3.3.3:1", "/api/v1/auth/login").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.3.3.3:1", "/api/v1/auth/login").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.3.3.3:1", "/api/v1/auth/login").Code)
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 1,
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.9.9.9:1"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1, 10.9.9.9"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"))
}
