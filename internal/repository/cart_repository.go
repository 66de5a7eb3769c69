package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// CartRepository handles cart data access
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a new CartRepository
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// WithTx returns a repository bound to tx. A nil tx returns r unchanged.
func (r *CartRepository) WithTx(tx *gorm.DB) *CartRepository {
	if tx == nil {
		return r
	}
	return &CartRepository{db: tx}
}

// CreateForAccount inserts an empty cart for the account unless one exists.
// The unique index on customer_account_id makes concurrent calls safe.
// Returns true when a cart was inserted.
func (r *CartRepository) CreateForAccount(ctx context.Context, accountID uuid.UUID) (bool, error) {
	cart := domain.Cart{CustomerAccountID: &accountID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "customer_account_id"}}, DoNothing: true}).
		Omit(clause.Associations).
		Create(&cart)
	return result.RowsAffected > 0, result.Error
}

// GetByAccountID retrieves the account's cart with its line items and products
func (r *CartRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.withLineItems(r.db.WithContext(ctx)).
		First(&cart, "customer_account_id = ?", accountID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockByAccountID is GetByAccountID holding a row lock until the transaction ends
func (r *CartRepository) LockByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.withLineItems(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart, "customer_account_id = ?", accountID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetByID retrieves a cart with its line items and products
func (r *CartRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.withLineItems(r.db.WithContext(ctx)).First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// LockByID is GetByID holding a row lock until the transaction ends
func (r *CartRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.withLineItems(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateTotal persists the cart's total price
func (r *CartRepository) UpdateTotal(ctx context.Context, cart *domain.Cart) error {
	return r.db.WithContext(ctx).Model(&domain.Cart{}).
		Where("id = ?", cart.ID).
		Update("total_price", cart.TotalPrice).Error
}

// ListIDs returns a page of cart IDs ordered by creation
func (r *CartRepository) ListIDs(ctx context.Context, offset, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&domain.Cart{}).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *CartRepository) withLineItems(db *gorm.DB) *gorm.DB {
	return db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Preload("LineItems.Product")
}
