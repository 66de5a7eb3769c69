// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/victorytouchdown/vtshop-api/internal/database"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/slug"
)

var seq atomic.Int64

// SetupTestDB opens a fresh in-memory SQLite database with the full schema.
// A single connection is used so that every query sees the same database;
// code under test must route queries issued inside a transaction through it.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func next() int64 {
	return seq.Add(1)
}

// CreateUser inserts an active user with the given role
func CreateUser(t *testing.T, db *gorm.DB, role domain.UserRole) *domain.User {
	t.Helper()
	n := next()
	user := &domain.User{
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "not-a-real-hash",
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(user).Error)
	return user
}

// CreateEmployee inserts an EMPLOYEE user. An empty regNumber leaves it unset.
func CreateEmployee(t *testing.T, db *gorm.DB, regNumber string) *domain.User {
	t.Helper()
	user := CreateUser(t, db, domain.RoleEmployee)
	if regNumber != "" {
		user.RegNumber = &regNumber
		user.Company = domain.EmployeeCompany
		require.NoError(t, db.Model(user).Updates(map[string]interface{}{
			"reg_number": regNumber,
			"company":    domain.EmployeeCompany,
		}).Error)
	}
	return user
}

// CreateCustomerAccount inserts a CUSTOMER user and its account, without cart
// or conversation
func CreateCustomerAccount(t *testing.T, db *gorm.DB) *domain.CustomerAccount {
	t.Helper()
	user := CreateUser(t, db, domain.RoleCustomer)
	account := &domain.CustomerAccount{UserID: user.ID, IsActive: true}
	require.NoError(t, db.Omit(clause.Associations).Create(account).Error)
	account.User = user
	return account
}

// CreateCart inserts an empty cart for the account
func CreateCart(t *testing.T, db *gorm.DB, accountID uuid.UUID) *domain.Cart {
	t.Helper()
	cart := &domain.Cart{CustomerAccountID: &accountID, TotalPrice: decimal.Zero}
	require.NoError(t, db.Omit(clause.Associations).Create(cart).Error)
	return cart
}

// CreateProduct inserts a product with the given unit price, e.g. "0.25"
func CreateProduct(t *testing.T, db *gorm.DB, name, price string) *domain.Product {
	t.Helper()
	product := &domain.Product{
		Name:        name,
		Slug:        slug.Make(name),
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(product).Error)
	return product
}

// CreateCategory inserts a category
func CreateCategory(t *testing.T, db *gorm.DB, name string) *domain.Category {
	t.Helper()
	category := &domain.Category{Name: name, Slug: slug.Make(name)}
	require.NoError(t, db.Create(category).Error)
	return category
}

// Count returns the number of rows of the given model
func Count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
