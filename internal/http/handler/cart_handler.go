package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

// CartHandler serves the calling customer's cart
type CartHandler struct {
	cartService *service.CartService
	logger      *zap.Logger
}

func NewCartHandler(cartService *service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// Get godoc
// @Summary Get the cart
// @Tags Cart
// @Produce json
// @Success 200 {object} domain.CartDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /cart [get]
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.GetCart(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get cart")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// AddLineItem godoc
// @Summary Add a product to the cart
// @Description A product not yet in the cart is only added from 1000 units. A product already in the cart has its quantity incremented.
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body domain.CartLineItemRequest true "Product and quantity"
// @Success 200 {object} domain.CartDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /cart/items [post]
func (h *CartHandler) AddLineItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CartLineItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cart, err := h.cartService.AddLineItem(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, h.logger, err, "add line item")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// UpdateLineItem godoc
// @Summary Set a product's quantity in the cart
// @Description Quantities below 1000 are ignored
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body domain.CartLineItemRequest true "Product and quantity"
// @Success 200 {object} domain.CartDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /cart/items [put]
func (h *CartHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	var req domain.CartLineItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cart, err := h.cartService.UpdateLineItem(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, h.logger, err, "update line item")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// RemoveLineItem godoc
// @Summary Remove a line item from the cart
// @Tags Cart
// @Produce json
// @Param id path string true "Line item ID"
// @Success 200 {object} domain.CartDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /cart/items/{id} [delete]
func (h *CartHandler) RemoveLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "line item ID")
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveLineItem(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "remove line item")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// Empty godoc
// @Summary Empty the cart
// @Tags Cart
// @Produce json
// @Success 200 {object} domain.CartDTO
// @Security BearerAuth
// @Router /cart/items [delete]
func (h *CartHandler) Empty(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.EmptyCart(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "empty cart")
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// MakeOrder godoc
// @Summary Order the cart
// @Description Turns the cart into an order. An empty cart creates nothing and answers 200 with created=false.
// @Tags Cart
// @Produce json
// @Success 201 {object} domain.MakeOrderResponse
// @Success 200 {object} domain.MakeOrderResponse
// @Failure 503 {object} domain.APIError
// @Security BearerAuth
// @Router /cart/order [post]
func (h *CartHandler) MakeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.cartService.MakeOrder(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "make order")
		return
	}
	if order == nil {
		respondJSON(w, http.StatusOK, domain.MakeOrderResponse{Created: false})
		return
	}
	respondJSON(w, http.StatusCreated, domain.MakeOrderResponse{Created: true, Order: order})
}
