package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/victorytouchdown/vtshop-api/internal/repository"
)

func newPostgresMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestCartRepository_LockingReads(t *testing.T) {
	tests := []struct {
		name  string
		query string
		lock  func(r *repository.CartRepository, id uuid.UUID) error
	}{
		{
			name:  "by id",
			query: `SELECT \* FROM "carts" WHERE id = \$1 .*FOR UPDATE`,
			lock: func(r *repository.CartRepository, id uuid.UUID) error {
				_, err := r.LockByID(context.Background(), id)
				return err
			},
		},
		{
			name:  "by account",
			query: `SELECT \* FROM "carts" WHERE customer_account_id = \$1 .*FOR UPDATE`,
			lock: func(r *repository.CartRepository, id uuid.UUID) error {
				_, err := r.LockByAccountID(context.Background(), id)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newPostgresMock(t)
			mock.ExpectQuery(tt.query).WillReturnRows(sqlmock.NewRows([]string{"id"}))

			err := tt.lock(repository.NewCartRepository(db), uuid.New())
			assert.True(t, repository.IsNotFound(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
