package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

// AccountHandler serves customer spaces and the staff views over users
type AccountHandler struct {
	accountService *service.AccountService
	logger         *zap.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// MySpace godoc
// @Summary Get the customer space
// @Description Returns the calling customer's account, advisor, advisor conversation and orders
// @Tags Accounts
// @Produce json
// @Success 200 {object} domain.MySpaceDTO
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /me/space [get]
func (h *AccountHandler) MySpace(w http.ResponseWriter, r *http.Request) {
	space, err := h.accountService.GetMySpace(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get my space")
		return
	}
	respondJSON(w, http.StatusOK, space)
}

// ListMyCustomers godoc
// @Summary List the calling employee's customers
// @Tags Accounts
// @Produce json
// @Success 200 {array} domain.CustomerAccountDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /customers [get]
func (h *AccountHandler) ListMyCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.accountService.ListMyCustomers(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list my customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

// GetCustomerAccount godoc
// @Summary Get a customer account
// @Description Employees only see the accounts assigned to them
// @Tags Accounts
// @Produce json
// @Param id path string true "Customer account ID"
// @Success 200 {object} domain.CustomerAccountDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /customers/{id} [get]
func (h *AccountHandler) GetCustomerAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "customer account ID")
	if !ok {
		return
	}

	account, err := h.accountService.GetCustomerAccount(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get customer account")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// ListEmployees godoc
// @Summary List employees
// @Tags Admin
// @Produce json
// @Success 200 {array} domain.UserDTO
// @Security BearerAuth
// @Router /admin/employees [get]
func (h *AccountHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.accountService.ListEmployees(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list employees")
		return
	}
	respondJSON(w, http.StatusOK, employees)
}

// CreateEmployee godoc
// @Summary Create an employee
// @Description Creates an EMPLOYEE user and assigns it a registration number
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body domain.CreateEmployeeRequest true "Employee details"
// @Success 201 {object} domain.UserDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/employees [post]
func (h *AccountHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateEmployeeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	employee, err := h.accountService.CreateEmployee(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create employee")
		return
	}
	respondJSON(w, http.StatusCreated, employee)
}

// SetEmployeePassword godoc
// @Summary Set an employee's password
// @Tags Admin
// @Accept json
// @Param id path string true "Employee user ID"
// @Param request body domain.SetPasswordRequest true "New password"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/employees/{id}/password [put]
func (h *AccountHandler) SetEmployeePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "employee ID")
	if !ok {
		return
	}

	var req domain.SetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accountService.SetEmployeePassword(r.Context(), id, req.Password); err != nil {
		handleServiceError(w, h.logger, err, "set employee password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param role query string false "Filter by role" Enums(ADMINISTRATOR, EMPLOYEE, CUSTOMER)
// @Param regNumber query string false "Filter by registration number"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.UserDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filter := &repository.UserFilter{RegNumber: r.URL.Query().Get("regNumber")}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := domain.UserRole(raw)
		if !role.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		filter.Role = &role
	}

	result, err := h.accountService.ListUsers(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list users")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
