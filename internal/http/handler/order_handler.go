package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// List godoc
// @Summary List orders
// @Description Customers see their own orders, employees those of their customers, administrators all
// @Tags Orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(created, processing, awaiting_supply, preparing_shipment, awaiting_payment, shipped, archived, cancelled)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.OrderDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /orders [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		status = &s
	}

	result, err := h.orderService.List(r.Context(), page, pageSize, status)
	if err != nil {
		handleServiceError(w, h.logger, err, "list orders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Param slug path string true "Order slug"
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{slug} [get]
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// UpdateStatus godoc
// @Summary Change an order's status
// @Tags Orders
// @Accept json
// @Produce json
// @Param slug path string true "Order slug"
// @Param request body domain.UpdateOrderStatusRequest true "New status"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{slug}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), chi.URLParam(r, "slug"), req.Status)
	if err != nil {
		handleServiceError(w, h.logger, err, "update order status")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListComments godoc
// @Summary List an order's comments
// @Tags Orders
// @Produce json
// @Param slug path string true "Order slug"
// @Success 200 {array} domain.CommentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{slug}/comments [get]
func (h *OrderHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.orderService.ListComments(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, h.logger, err, "list order comments")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

// AddComment godoc
// @Summary Comment an order
// @Description Empty content stores the default creation comment
// @Tags Orders
// @Accept json
// @Produce json
// @Param slug path string true "Order slug"
// @Param request body domain.AddCommentRequest true "Comment"
// @Success 201 {object} domain.CommentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{slug}/comments [post]
func (h *OrderHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req domain.AddCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.orderService.AddComment(r.Context(), chi.URLParam(r, "slug"), req.Content)
	if err != nil {
		handleServiceError(w, h.logger, err, "add order comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}
