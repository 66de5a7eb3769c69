package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// CustomerAccountRepository handles customer account data access
type CustomerAccountRepository struct {
	db *gorm.DB
}

// NewCustomerAccountRepository creates a new CustomerAccountRepository
func NewCustomerAccountRepository(db *gorm.DB) *CustomerAccountRepository {
	return &CustomerAccountRepository{db: db}
}

// WithTx returns a repository bound to tx. A nil tx returns r unchanged.
func (r *CustomerAccountRepository) WithTx(tx *gorm.DB) *CustomerAccountRepository {
	if tx == nil {
		return r
	}
	return &CustomerAccountRepository{db: tx}
}

func (r *CustomerAccountRepository) Create(ctx context.Context, account *domain.CustomerAccount) error {
	return r.db.WithContext(ctx).Omit("User", "Cart").Create(account).Error
}

func (r *CustomerAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerAccount, error) {
	var account domain.CustomerAccount
	err := r.db.WithContext(ctx).Preload("User").First(&account, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *CustomerAccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CustomerAccount, error) {
	var account domain.CustomerAccount
	err := r.db.WithContext(ctx).Preload("User").First(&account, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// SetEmployeeReg assigns an employee when the account has none.
// Returns false when an employee was already assigned.
func (r *CustomerAccountRepository) SetEmployeeReg(ctx context.Context, id uuid.UUID, reg string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.CustomerAccount{}).
		Where("id = ? AND employee_reg IS NULL", id).
		Update("employee_reg", reg)
	return result.RowsAffected > 0, result.Error
}

// CountByEmployeeReg returns the number of accounts assigned to each
// registration number. Employees without accounts are absent from the map.
func (r *CustomerAccountRepository) CountByEmployeeReg(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EmployeeReg string
		Total       int64
	}
	err := r.db.WithContext(ctx).Model(&domain.CustomerAccount{}).
		Select("employee_reg, COUNT(*) AS total").
		Where("employee_reg IS NOT NULL").
		Group("employee_reg").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EmployeeReg] = row.Total
	}
	return counts, nil
}

// ListByEmployeeReg returns the accounts assigned to an employee, earliest first
func (r *CustomerAccountRepository) ListByEmployeeReg(ctx context.Context, reg string) ([]domain.CustomerAccount, error) {
	var accounts []domain.CustomerAccount
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("employee_reg = ?", reg).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

// ListUnassigned returns active accounts without an employee
func (r *CustomerAccountRepository) ListUnassigned(ctx context.Context, limit int) ([]domain.CustomerAccount, error) {
	var accounts []domain.CustomerAccount
	err := r.db.WithContext(ctx).
		Where("employee_reg IS NULL AND is_active = ?", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
