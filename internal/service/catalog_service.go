package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/mapper"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/slug"
	"github.com/victorytouchdown/vtshop-api/internal/storage"
)

const productImagePrefix = "products"

// allowedImageTypes maps sniffed content types to the stored extension
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrInvalidImageType = errors.New("only JPEG, PNG, GIF and WebP images are accepted")
	ErrImageTooLarge    = errors.New("image exceeds the maximum upload size")
)

// CatalogCache stores catalog listings between writes
type CatalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	Invalidate(ctx context.Context)
}

// CatalogService manages categories, products and product images
type CatalogService struct {
	categoryRepo *repository.CategoryRepository
	productRepo  *repository.ProductRepository
	storage      storage.Storage
	cache        CatalogCache
	maxImageSize int64
	logger       *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	categoryRepo *repository.CategoryRepository,
	productRepo *repository.ProductRepository,
	store storage.Storage,
	cache CatalogCache,
	maxImageSize int64,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		storage:      store,
		cache:        cache,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// ListCategories returns every category ordered by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.CategoryDTO, error) {
	var cached []domain.CategoryDTO
	if s.cacheGet(ctx, "categories", &cached) {
		return cached, nil
	}

	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	dtos := make([]domain.CategoryDTO, len(categories))
	for i := range categories {
		dtos[i] = mapper.ToCategoryDTO(&categories[i])
	}
	s.cacheSet(ctx, "categories", dtos)
	return dtos, nil
}

// GetCategory returns a category by slug
func (s *CatalogService) GetCategory(ctx context.Context, categorySlug string) (*domain.CategoryDTO, error) {
	category, err := s.categoryRepo.GetBySlug(ctx, categorySlug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	dto := mapper.ToCategoryDTO(category)
	return &dto, nil
}

// CreateCategory creates a category. The name must be unique and not reserved.
func (s *CatalogService) CreateCategory(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.CategoryDTO, error) {
	name, categorySlug, err := s.checkCategoryName(ctx, req.Name, nil)
	if err != nil {
		return nil, err
	}

	category := &domain.Category{Name: name, Slug: categorySlug}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.invalidate(ctx)

	dto := mapper.ToCategoryDTO(category)
	return &dto, nil
}

// UpdateCategory renames a category
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *domain.UpdateCategoryRequest) (*domain.CategoryDTO, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	name, categorySlug, err := s.checkCategoryName(ctx, req.Name, &category.ID)
	if err != nil {
		return nil, err
	}

	category.Name = name
	category.Slug = categorySlug
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	s.invalidate(ctx)

	dto := mapper.ToCategoryDTO(category)
	return &dto, nil
}

func (s *CatalogService) checkCategoryName(ctx context.Context, name string, excludeID *uuid.UUID) (string, string, error) {
	name = strings.TrimSpace(name)
	categorySlug := slug.Make(name)
	if categorySlug == "" {
		return "", "", ErrInvalidInput
	}
	if categorySlug == domain.ReservedCategoryName {
		return "", "", ErrReservedCategoryName
	}

	taken, err := s.categoryRepo.NameOrSlugTaken(ctx, name, categorySlug, excludeID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check category name: %w", err)
	}
	if taken {
		return "", "", ErrDuplicateCategory
	}
	return name, categorySlug, nil
}

// ProductListParams selects a page of products
type ProductListParams struct {
	Page         int
	PageSize     int
	CategorySlug string
	Search       string
	SortBy       repository.ProductSortOption
}

type productPage struct {
	Products []domain.ProductDTO `json:"products"`
	Total    int64               `json:"total"`
}

// ListProducts returns a page of products, by name unless newest first is asked
func (s *CatalogService) ListProducts(ctx context.Context, params ProductListParams) (*domain.PaginatedResponse, error) {
	key := "products:" + strings.Join([]string{
		strconv.Itoa(params.Page),
		strconv.Itoa(params.PageSize),
		params.CategorySlug,
		strings.ToLower(params.Search),
		string(params.SortBy),
	}, "|")

	var page productPage
	if !s.cacheGet(ctx, key, &page) {
		products, total, err := s.productRepo.List(ctx, params.Page, params.PageSize,
			&repository.ProductFilters{CategorySlug: params.CategorySlug, Search: params.Search},
			params.SortBy)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}

		page.Total = total
		page.Products = make([]domain.ProductDTO, len(products))
		for i := range products {
			page.Products[i] = mapper.ToProductDTO(&products[i])
		}
		s.cacheSet(ctx, key, page)
	}

	return paginate(page.Products, page.Total, params.Page, params.PageSize), nil
}

// GetProduct returns a product by slug
func (s *CatalogService) GetProduct(ctx context.Context, productSlug string) (*domain.ProductDTO, error) {
	product, err := s.getProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToProductDTO(product)
	return &dto, nil
}

// CreateProduct adds a product to the catalog
func (s *CatalogService) CreateProduct(ctx context.Context, req *domain.CreateProductRequest) (*domain.ProductDTO, error) {
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	productSlug := slug.Make(name)
	if productSlug == "" {
		return nil, ErrInvalidInput
	}
	if err := s.checkProductName(ctx, name, productSlug, nil); err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:        name,
		Slug:        productSlug,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		CategoryID:  req.CategoryID,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.invalidate(ctx)

	return s.GetProduct(ctx, product.Slug)
}

// UpdateProduct applies the non-nil fields of req
func (s *CatalogService) UpdateProduct(ctx context.Context, productSlug string, req *domain.UpdateProductRequest) (*domain.ProductDTO, error) {
	product, err := s.getProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		newSlug := slug.Make(name)
		if newSlug == "" {
			return nil, ErrInvalidInput
		}
		if err := s.checkProductName(ctx, name, newSlug, &product.ID); err != nil {
			return nil, err
		}
		product.Name = name
		product.Slug = newSlug
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		product.Price = price
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
		product.Category = nil
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.invalidate(ctx)

	return s.GetProduct(ctx, product.Slug)
}

// UploadProductImage stores a new image for the product and drops the
// previous one. Only image content is accepted, sniffed from the bytes.
func (s *CatalogService) UploadProductImage(ctx context.Context, productSlug, filename string, data io.Reader) (*domain.ProductDTO, error) {
	product, err := s.getProduct(ctx, productSlug)
	if err != nil {
		return nil, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(data, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, ErrInvalidImageType
	}

	body := io.MultiReader(bytes.NewReader(head), data)
	if s.maxImageSize > 0 {
		body = io.LimitReader(body, s.maxImageSize+1)
	}

	path, size, err := s.storage.Upload(ctx, productImagePrefix, product.Slug+ext, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	if s.maxImageSize > 0 && size > s.maxImageSize {
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			s.logger.Warn("failed to remove oversized image", zap.String("path", path), zap.Error(delErr))
		}
		return nil, ErrImageTooLarge
	}

	previous := product.ImagePath
	product.ImagePath = &path
	product.ImageContentType = contentType
	product.Category = nil
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product image: %w", err)
	}
	s.invalidate(ctx)

	if previous != nil && *previous != path {
		if err := s.storage.Delete(ctx, *previous); err != nil {
			s.logger.Warn("failed to delete previous product image",
				zap.String("product", product.Slug),
				zap.String("path", *previous),
				zap.Error(err))
		}
	}

	s.logger.Info("product image uploaded",
		zap.String("product", product.Slug),
		zap.String("content_type", contentType),
		zap.Int64("size", size))

	return s.GetProduct(ctx, product.Slug)
}

// OpenProductImage returns the product image and its content type
func (s *CatalogService) OpenProductImage(ctx context.Context, productSlug string) (io.ReadCloser, string, error) {
	product, err := s.getProduct(ctx, productSlug)
	if err != nil {
		return nil, "", err
	}
	if product.ImagePath == nil {
		return nil, "", ErrImageNotFound
	}

	rc, err := s.storage.Download(ctx, *product.ImagePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", ErrImageNotFound
		}
		return nil, "", fmt.Errorf("failed to open product image: %w", err)
	}
	return rc, product.ImageContentType, nil
}

func (s *CatalogService) getProduct(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.productRepo.GetBySlug(ctx, productSlug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.GetByID(ctx, *id); err != nil {
		if repository.IsNotFound(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to get category: %w", err)
	}
	return nil
}

func (s *CatalogService) checkProductName(ctx context.Context, name, productSlug string, excludeID *uuid.UUID) error {
	taken, err := s.productRepo.NameOrSlugTaken(ctx, name, productSlug, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check product name: %w", err)
	}
	if taken {
		return ErrDuplicateProduct
	}
	return nil
}

// parsePrice accepts non-negative amounts with at most two decimals that fit
// numeric(10,2)
func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if price.IsNegative() || price.Exponent() < -2 && !price.Equal(price.Round(2)) {
		return decimal.Zero, ErrInvalidPrice
	}
	if price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return decimal.Zero, ErrInvalidPrice
	}
	return price.Round(2), nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(ctx, key, dest)
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache != nil {
		s.cache.Set(ctx, key, value)
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
