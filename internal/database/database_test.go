package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/victorytouchdown/vtshop-api/internal/database"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestHealthCheck_Healthy(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing()

	require.NoError(t, database.HealthCheck(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_PingFails(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err := database.HealthCheck(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHealthCheckWithStats(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectPing()

	stats, err := database.HealthCheckWithStats(db)
	require.NoError(t, err)
	assert.Equal(t, "healthy", stats.Status)

	mock.ExpectPing().WillReturnError(errors.New("down"))
	stats, err = database.HealthCheckWithStats(db)
	require.Error(t, err)
	assert.Equal(t, "unhealthy", stats.Status)
}

func TestAutoMigrate_SQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))
	for _, table := range []string{"users", "customer_accounts", "carts", "line_items", "orders", "comments", "conversations", "conversation_participants", "messages", "products", "categories", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestGormLogger_SlowQuery(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := database.NewGormLogger(zap.New(core), 10*time.Millisecond)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 2", 1
	}, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 3", 0
	}, gorm.ErrRecordNotFound)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Slow query", logs.All()[0].Message)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT", 0
	}, errors.New("duplicate key"))
	assert.Equal(t, 2, logs.Len())
}
