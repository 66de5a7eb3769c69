package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// OrderFilters narrows order listings. CustomerAccountID and EmployeeReg
// scope the listing to one customer or to one employee's customers.
type OrderFilters struct {
	CustomerAccountID *uuid.UUID
	EmployeeReg       string
	Status            *domain.OrderStatus
}

// OrderRepository handles order and order comment data access
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a repository bound to tx. A nil tx returns r unchanged.
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	if tx == nil {
		return r
	}
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

// SaveTotals persists the derived price fields
func (r *OrderRepository) SaveTotals(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"total_price":    order.TotalPrice,
			"vat_amount":     order.VATAmount,
			"incl_vat_price": order.InclVATPrice,
		}).Error
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetBySlug retrieves the whole order: line items, comments newest first
// and the customer account
func (r *OrderRepository) GetBySlug(ctx context.Context, slug string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("LineItems.Product").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("CustomerAccount.User").
		First(&order, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// RefNumberExists reports whether an order already uses the reference number
func (r *OrderRepository) RefNumberExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("ref_number = ?", ref).Count(&count).Error
	return count > 0, err
}

// List returns a page of orders, newest first
func (r *OrderRepository) List(ctx context.Context, page, pageSize int, filters *OrderFilters) ([]domain.Order, int64, error) {
	var orders []domain.Order
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Order{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("CustomerAccount.User").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// CreateComment attaches a comment to an order
func (r *OrderRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments returns the order's comments, newest first
func (r *OrderRepository) ListComments(ctx context.Context, orderID uuid.UUID) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

func (r *OrderRepository) applyFilters(query *gorm.DB, filters *OrderFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.CustomerAccountID != nil {
		query = query.Where("customer_account_id = ?", *filters.CustomerAccountID)
	}
	if filters.EmployeeReg != "" {
		query = query.Where("customer_account_id IN (?)",
			r.db.Model(&domain.CustomerAccount{}).Select("id").Where("employee_reg = ?", filters.EmployeeReg))
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}
