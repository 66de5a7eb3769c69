package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// ProductFilters defines filtering options for product listing
type ProductFilters struct {
	CategorySlug string
	Search       string
}

// ProductSortOption selects the listing order
type ProductSortOption string

const (
	ProductSortByName   ProductSortOption = "name"
	ProductSortByNewest ProductSortOption = "newest"
)

// ProductRepository handles catalog product data access
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).Preload("Category").First(&product, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// NameOrSlugTaken reports whether another product already uses the name or slug
func (r *ProductRepository) NameOrSlugTaken(ctx context.Context, name, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("(LOWER(name) = LOWER(?) OR slug = ?)", name, slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// List returns a page of products
func (r *ProductRepository) List(ctx context.Context, page, pageSize int, filters *ProductFilters, sortBy ProductSortOption) ([]domain.Product, int64, error) {
	var products []domain.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Product{})
	if filters != nil {
		if filters.CategorySlug != "" {
			query = query.Where("category_id IN (?)", r.db.Model(&domain.Category{}).Select("id").Where("slug = ?", filters.CategorySlug))
		}
		if filters.Search != "" {
			pattern := "%" + filters.Search + "%"
			query = query.Where("LOWER(name) LIKE LOWER(?)", pattern)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch sortBy {
	case ProductSortByNewest:
		query = query.Order("created_at DESC")
	default:
		query = query.Order("name ASC")
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Category").Offset(offset).Limit(pageSize).Find(&products).Error
	return products, total, err
}
