package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

func TestAuthHandler_Register_ValidationErrors(t *testing.T) {
	h := newHandlers(t)

	w := serve(h.auth.Register, request(t, http.MethodPost, "/auth/register", nil, domain.RegisterCustomerRequest{
		Email: "not-an-email",
	}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := apiError(t, w)
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Equal(t, "Must be a valid email address", apiErr.Errors["email"])
	assert.Equal(t, "password is required", apiErr.Errors["password"])
}

func TestAuthHandler_Register_UnknownFieldRejected(t *testing.T) {
	h := newHandlers(t)

	w := serve(h.auth.Register, request(t, http.MethodPost, "/auth/register", nil,
		`{"email":"casey@example.com","password":"Touchdown#2024","role":"ADMINISTRATOR"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrorTypeBadRequest, apiError(t, w).Type)
	assert.Zero(t, testutil.Count(t, h.db, &domain.User{}))
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	h := newHandlers(t)
	req := domain.RegisterCustomerRequest{Email: "casey@example.com", Password: "Touchdown#2024"}

	w := serve(h.auth.Register, request(t, http.MethodPost, "/auth/register", nil, req))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req.Email = "CASEY@example.com"
	w = serve(h.auth.Register, request(t, http.MethodPost, "/auth/register", nil, req))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_LoginIsAudited(t *testing.T) {
	h := newHandlers(t)
	w := serve(h.auth.Register, request(t, http.MethodPost, "/auth/register", nil,
		domain.RegisterCustomerRequest{Email: "casey@example.com", Password: "Touchdown#2024"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(h.auth.Login, request(t, http.MethodPost, "/auth/login", nil,
		domain.LoginRequest{Email: "casey@example.com", Password: "Touchdown#2024"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tok domain.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.NotEmpty(t, tok.Token)

	var logs []domain.AuditLog
	require.NoError(t, h.db.Where("action = ?", domain.AuditActionLogin).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "casey@example.com", logs[0].EntityKey)
}

func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	h := newHandlers(t)

	w := serve(h.auth.Me, request(t, http.MethodGet, "/auth/me", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_PasswordResetAcceptsUnknownEmail(t *testing.T) {
	h := newHandlers(t)

	w := serve(h.auth.RequestPasswordReset, request(t, http.MethodPost, "/auth/password-reset", nil,
		domain.PasswordResetRequest{Email: "nobody@example.com"}))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = serve(h.auth.ConfirmPasswordReset, request(t, http.MethodPost, "/auth/password-reset/confirm", nil,
		domain.PasswordResetConfirmRequest{Token: "garbage", NewPassword: "Touchdown#2025"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
