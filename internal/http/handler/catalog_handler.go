package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

// multipartOverhead is the room left for form headers on image uploads
const multipartOverhead = 64 << 10

// CatalogHandler serves categories, products and product images
type CatalogHandler struct {
	catalogService *service.CatalogService
	maxUploadSize  int64
	logger         *zap.Logger
}

func NewCatalogHandler(catalogService *service.CatalogService, maxUploadSize int64, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		maxUploadSize:  maxUploadSize,
		logger:         logger,
	}
}

// ListCategories godoc
// @Summary List categories
// @Tags Catalog
// @Produce json
// @Success 200 {array} domain.CategoryDTO
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// GetCategory godoc
// @Summary Get a category
// @Tags Catalog
// @Produce json
// @Param slug path string true "Category slug"
// @Success 200 {object} domain.CategoryDTO
// @Failure 404 {object} domain.APIError
// @Router /categories/{slug} [get]
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalogService.GetCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body domain.CreateCategoryRequest true "Category"
// @Success 201 {object} domain.CategoryDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /categories [post]
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create category")
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Rename a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param request body domain.UpdateCategoryRequest true "Category"
// @Success 200 {object} domain.CategoryDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "category ID")
	if !ok {
		return
	}

	var req domain.UpdateCategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// ListProducts godoc
// @Summary List products
// @Tags Catalog
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param category query string false "Filter by category slug"
// @Param search query string false "Search by name"
// @Param sortBy query string false "Sort option" Enums(name, newest)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ProductDTO}
// @Router /products [get]
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	sortBy := repository.ProductSortByName
	if s := q.Get("sortBy"); s != "" {
		sortBy = repository.ProductSortOption(s)
	}

	result, err := h.catalogService.ListProducts(r.Context(), service.ProductListParams{
		Page:         page,
		PageSize:     pageSize,
		CategorySlug: q.Get("category"),
		Search:       q.Get("search"),
		SortBy:       sortBy,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, "list products")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetProduct godoc
// @Summary Get a product
// @Tags Catalog
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} domain.ProductDTO
// @Failure 404 {object} domain.APIError
// @Router /products/{slug} [get]
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags Catalog
// @Accept json
// @Produce json
// @Param request body domain.CreateProductRequest true "Product"
// @Success 201 {object} domain.ProductDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /products [post]
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Tags Catalog
// @Accept json
// @Produce json
// @Param slug path string true "Product slug"
// @Param request body domain.UpdateProductRequest true "Fields to change"
// @Success 200 {object} domain.ProductDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /products/{slug} [patch]
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProductRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), chi.URLParam(r, "slug"), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// UploadProductImage godoc
// @Summary Upload a product image
// @Description Accepts JPEG, PNG, GIF or WebP in the multipart field "image"
// @Tags Catalog
// @Accept multipart/form-data
// @Produce json
// @Param slug path string true "Product slug"
// @Param image formData file true "Image"
// @Success 200 {object} domain.ProductDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /products/{slug}/image [put]
func (h *CatalogHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	product, err := h.catalogService.UploadProductImage(r.Context(), chi.URLParam(r, "slug"), header.Filename, file)
	if err != nil {
		handleServiceError(w, h.logger, err, "upload product image")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GetProductImage godoc
// @Summary Download a product image
// @Tags Catalog
// @Produce image/jpeg,image/png,image/gif,image/webp
// @Param slug path string true "Product slug"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Router /products/{slug}/image [get]
func (h *CatalogHandler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.catalogService.OpenProductImage(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, h.logger, err, "get product image")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream product image", zap.Error(err))
	}
}
