package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

func TestCatalogHandler_CreateCategory(t *testing.T) {
	h := newHandlers(t)
	employee := testutil.CreateEmployee(t, h.db, "1001")

	w := serve(h.catalog.CreateCategory, request(t, http.MethodPost, "/categories", employee,
		domain.CreateCategoryRequest{Name: "Vinyl Stickers"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var category domain.CategoryDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &category))
	assert.Equal(t, "vinyl-stickers", category.Slug)

	w = serve(h.catalog.CreateCategory, request(t, http.MethodPost, "/categories", employee,
		domain.CreateCategoryRequest{Name: "vinyl stickers"}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCatalogHandler_UpdateCategory_BadID(t *testing.T) {
	h := newHandlers(t)
	employee := testutil.CreateEmployee(t, h.db, "1001")

	w := serve(h.catalog.UpdateCategory, request(t, http.MethodPut, "/categories/x", employee,
		domain.UpdateCategoryRequest{Name: "Labels"}, "id", "x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandler_CreateProduct_InvalidPrice(t *testing.T) {
	h := newHandlers(t)
	employee := testutil.CreateEmployee(t, h.db, "1001")

	w := serve(h.catalog.CreateProduct, request(t, http.MethodPost, "/products", employee,
		domain.CreateProductRequest{Name: "Sticker", Price: "cheap"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, apiError(t, w).Errors, "price")
}

func TestCatalogHandler_UpdateProduct(t *testing.T) {
	h := newHandlers(t)
	employee := testutil.CreateEmployee(t, h.db, "1001")
	product := testutil.CreateProduct(t, h.db, "Die Cut Sticker", "0.40")

	price := "0.35"
	w := serve(h.catalog.UpdateProduct, request(t, http.MethodPatch, "/products/"+product.Slug, employee,
		domain.UpdateProductRequest{Price: &price}, "slug", product.Slug))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dto domain.ProductDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	assert.Equal(t, "0.35", dto.Price)
	assert.Equal(t, "350.00", dto.PricePerThousand)
	assert.Equal(t, "Die Cut Sticker", dto.Name)
}

func TestCatalogHandler_ListProducts(t *testing.T) {
	h := newHandlers(t)
	testutil.CreateProduct(t, h.db, "Banner", "2.00")
	testutil.CreateProduct(t, h.db, "Air Freshener", "0.80")
	testutil.CreateProduct(t, h.db, "Coaster", "0.15")

	w := serve(h.catalog.ListProducts, request(t, http.MethodGet, "/products?pageSize=2", nil, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Data       []domain.ProductDTO `json:"data"`
		Total      int64               `json:"total"`
		TotalPages int                 `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Air Freshener", page.Data[0].Name)
	assert.Equal(t, "Banner", page.Data[1].Name)

	w = serve(h.catalog.ListProducts, request(t, http.MethodGet, "/products?search=coast", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Coaster", page.Data[0].Name)
}

func TestCatalogHandler_UploadProductImage_MissingFile(t *testing.T) {
	h := newHandlers(t)
	employee := testutil.CreateEmployee(t, h.db, "1001")
	product := testutil.CreateProduct(t, h.db, "Magnet", "0.50")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/products/"+product.Slug+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(request(t, http.MethodPut, "/", employee, nil, "slug", product.Slug).Context())

	w := serve(h.catalog.UploadProductImage, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing image file", apiError(t, w).Detail)
}
