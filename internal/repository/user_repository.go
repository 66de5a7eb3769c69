package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// UserFilter narrows user listings
type UserFilter struct {
	Role              *domain.UserRole
	CustomerAccountID *uuid.UUID
	RegNumber         string
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx. A nil tx returns r unchanged.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByRegNumber retrieves the employee holding a registration number
func (r *UserRepository) GetByRegNumber(ctx context.Context, reg string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "reg_number = ?", reg).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists reports whether an account already uses the email address
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// RegNumberExists reports whether a registration number is already assigned
func (r *UserRepository) RegNumberExists(ctx context.Context, reg string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("reg_number = ?", reg).Count(&count).Error
	return count > 0, err
}

// CountWithRegNumber counts users holding a registration number
func (r *UserRepository) CountWithRegNumber(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("reg_number IS NOT NULL").Count(&count).Error
	return count, err
}

// SetRegNumber assigns a registration number to a user that has none yet.
// Returns false when the user already had one.
func (r *UserRepository) SetRegNumber(ctx context.Context, id uuid.UUID, reg string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND reg_number IS NULL", id).
		Update("reg_number", reg)
	return result.RowsAffected > 0, result.Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByRole returns every user with the role, earliest joined first
func (r *UserRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// List returns a page of users matching the filter
func (r *UserRepository) List(ctx context.Context, filter *UserFilter, page, pageSize int) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.User{})
	if filter != nil {
		if filter.Role != nil {
			query = query.Where("role = ?", *filter.Role)
		}
		if filter.CustomerAccountID != nil {
			query = query.Where("id IN (?)", r.db.Model(&domain.CustomerAccount{}).Select("user_id").Where("id = ?", *filter.CustomerAccountID))
		}
		if filter.RegNumber != "" {
			query = query.Where("reg_number = ?", filter.RegNumber)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at ASC").Offset(offset).Limit(pageSize).Find(&users).Error
	return users, total, err
}

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
