package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

type AuthHandler struct {
	authService    *service.AuthService
	accountService *service.AccountService
	auditService   *service.AuditLogService
	logger         *zap.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	accountService *service.AccountService,
	auditService *service.AuditLogService,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
		auditService:   auditService,
		logger:         logger,
	}
}

// Register godoc
// @Summary Register a customer
// @Description Creates a CUSTOMER user with its account, cart, assigned employee and advisor conversation
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterCustomerRequest true "Registration details"
// @Success 201 {object} domain.CustomerAccountDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterCustomerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.accountService.RegisterCustomer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "register customer")
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// Login godoc
// @Summary Log in
// @Description Exchanges email and password for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.TokenResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "login")
		return
	}

	if h.auditService != nil {
		_ = h.auditService.Log(r.Context(), r, service.LogEntry{
			Action:     domain.AuditActionLogin,
			EntityType: "User",
			EntityKey:  resp.User.Email,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// Logout godoc
// @Summary Log out
// @Description Revokes the bearer token used for the request
// @Tags Auth
// @Success 204
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context()); err != nil {
		handleServiceError(w, h.logger, err, "logout")
		return
	}

	if h.auditService != nil {
		_ = h.auditService.Log(r.Context(), r, service.LogEntry{
			Action:     domain.AuditActionLogout,
			EntityType: "User",
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me godoc
// @Summary Get current authenticated user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.AuthUserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.authService.Me(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get current user")
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// RequestPasswordReset godoc
// @Summary Request a password reset
// @Description Sends a reset token to the customer. Answers 202 whether or not the email is known.
// @Tags Auth
// @Accept json
// @Param request body domain.PasswordResetRequest true "Email"
// @Success 202
// @Failure 400 {object} domain.APIError
// @Router /auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, h.logger, err, "request password reset")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ConfirmPasswordReset godoc
// @Summary Set a new password with a reset token
// @Tags Auth
// @Accept json
// @Param request body domain.PasswordResetConfirmRequest true "Token and new password"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Router /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.authService.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		if isWeakPassword(err) {
			respondWeakPassword(w, "newPassword", err)
			return
		}
		handleServiceError(w, h.logger, err, "confirm password reset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
