package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// LineItemRepository handles line item data access
type LineItemRepository struct {
	db *gorm.DB
}

// NewLineItemRepository creates a new LineItemRepository
func NewLineItemRepository(db *gorm.DB) *LineItemRepository {
	return &LineItemRepository{db: db}
}

// WithTx returns a repository bound to tx. A nil tx returns r unchanged.
func (r *LineItemRepository) WithTx(tx *gorm.DB) *LineItemRepository {
	if tx == nil {
		return r
	}
	return &LineItemRepository{db: tx}
}

func (r *LineItemRepository) Create(ctx context.Context, item *domain.LineItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *LineItemRepository) Save(ctx context.Context, item *domain.LineItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

// GetInCart finds the cart's line item for a product
func (r *LineItemRepository) GetInCart(ctx context.Context, cartID, productID uuid.UUID) (*domain.LineItem, error) {
	var item domain.LineItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		First(&item, "cart_id = ? AND product_id = ?", cartID, productID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteFromCart removes a line item owned by the cart
func (r *LineItemRepository) DeleteFromCart(ctx context.Context, cartID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND cart_id = ?", id, cartID).Delete(&domain.LineItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAllFromCart removes every line item owned by the cart
func (r *LineItemRepository) DeleteAllFromCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&domain.LineItem{})
	return result.RowsAffected, result.Error
}

// MoveCartToOrder transfers every line item of the cart to the order
func (r *LineItemRepository) MoveCartToOrder(ctx context.Context, cartID, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.LineItem{}).
		Where("cart_id = ?", cartID).
		Updates(map[string]interface{}{
			"cart_id":  nil,
			"order_id": orderID,
		})
	return result.RowsAffected, result.Error
}

func (r *LineItemRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
