package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

func TestCartHandler_AddLineItem(t *testing.T) {
	h := newHandlers(t)
	account := testutil.CreateCustomerAccount(t, h.db)
	testutil.CreateCart(t, h.db, account.ID)
	product := testutil.CreateProduct(t, h.db, "Round Sticker", "0.25")

	w := serve(h.cart.AddLineItem, request(t, http.MethodPost, "/cart/items", account.User,
		domain.CartLineItemRequest{ProductID: product.ID, Quantity: 1000}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cart domain.CartDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.LineItems, 1)
	assert.Equal(t, 1000, cart.LineItems[0].Quantity)
	assert.Equal(t, "250.00", cart.LineItems[0].Price)
	assert.Equal(t, "250.00", cart.TotalPrice)
}

func TestCartHandler_Errors(t *testing.T) {
	h := newHandlers(t)
	account := testutil.CreateCustomerAccount(t, h.db)
	testutil.CreateCart(t, h.db, account.ID)
	employee := testutil.CreateEmployee(t, h.db, "1001")

	t.Run("unknown product", func(t *testing.T) {
		w := serve(h.cart.AddLineItem, request(t, http.MethodPost, "/cart/items", account.User,
			domain.CartLineItemRequest{ProductID: uuid.New(), Quantity: 1000}))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("negative quantity", func(t *testing.T) {
		w := serve(h.cart.UpdateLineItem, request(t, http.MethodPut, "/cart/items", account.User,
			domain.CartLineItemRequest{ProductID: uuid.New(), Quantity: -5}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, apiError(t, w).Errors, "quantity")
	})

	t.Run("quantity above maximum", func(t *testing.T) {
		w := serve(h.cart.AddLineItem, request(t, http.MethodPost, "/cart/items", account.User,
			domain.CartLineItemRequest{ProductID: uuid.New(), Quantity: domain.MaxLineItemQuantity + 1}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, apiError(t, w).Errors, "quantity")
	})

	t.Run("malformed line item id", func(t *testing.T) {
		w := serve(h.cart.RemoveLineItem, request(t, http.MethodDelete, "/cart/items/abc", account.User, nil, "id", "abc"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("line item not in cart", func(t *testing.T) {
		id := uuid.NewString()
		w := serve(h.cart.RemoveLineItem, request(t, http.MethodDelete, "/cart/items/"+id, account.User, nil, "id", id))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("caller is not a customer", func(t *testing.T) {
		w := serve(h.cart.Get, request(t, http.MethodGet, "/cart", employee, nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCartHandler_MakeOrder(t *testing.T) {
	h := newHandlers(t)
	account := testutil.CreateCustomerAccount(t, h.db)
	testutil.CreateCart(t, h.db, account.ID)
	product := testutil.CreateProduct(t, h.db, "Round Sticker", "0.10")

	w := serve(h.cart.MakeOrder, request(t, http.MethodPost, "/cart/order", account.User, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var empty domain.MakeOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.False(t, empty.Created)
	assert.Nil(t, empty.Order)

	w = serve(h.cart.UpdateLineItem, request(t, http.MethodPut, "/cart/items", account.User,
		domain.CartLineItemRequest{ProductID: product.ID, Quantity: 3000}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(h.cart.MakeOrder, request(t, http.MethodPost, "/cart/order", account.User, nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var made domain.MakeOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &made))
	require.True(t, made.Created)
	assert.Equal(t, "300.00", made.Order.TotalPrice)
	assert.Equal(t, "360.00", made.Order.InclVATPrice)
	assert.Len(t, made.Order.RefNumber, 10)
	assert.Equal(t, int64(1), testutil.Count(t, h.db, &domain.Order{}))

	w = serve(h.cart.Empty, request(t, http.MethodDelete, "/cart/items", account.User, nil))
	require.Equal(t, http.StatusOK, w.Code)
}
