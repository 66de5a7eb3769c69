package service_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

func TestAuditLogService_LogAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := adminCtx()
	productID := uuid.New()

	req := httptest.NewRequest("POST", "/api/v1/products", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("User-Agent", "vtshop-test")

	require.NoError(t, env.audit.Log(ctx, req, service.LogEntry{
		Action:     domain.AuditActionCreate,
		EntityType: "product",
		EntityID:   &productID,
		EntityKey:  "trophy",
		NewValues:  map[string]string{"name": "Trophy"},
	}))
	require.NoError(t, env.audit.Log(context.Background(), nil, service.LogEntry{
		Action:     domain.AuditActionLogin,
		EntityType: "user",
	}))

	page, err := env.audit.List(context.Background(), service.AuditLogQueryParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	create := domain.AuditActionCreate
	page, err = env.audit.List(context.Background(), service.AuditLogQueryParams{Action: &create, Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)

	entry := page.Data.([]domain.AuditLogDTO)[0]
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "vtshop-test", entry.UserAgent)
	assert.Equal(t, "admin@example.com", entry.UserEmail)
	assert.Equal(t, domain.RoleAdministrator, entry.UserRole)
	assert.JSONEq(t, `{"name":"Trophy"}`, entry.NewValues)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, productID, *entry.EntityID)
}

func TestAuditLogService_CleanupOldLogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, env.audit.Log(ctx, nil, service.LogEntry{Action: domain.AuditActionUpdate, EntityType: "order"}))
	}
	var ids []uuid.UUID
	require.NoError(t, env.db.Model(&domain.AuditLog{}).Limit(2).Pluck("id", &ids).Error)
	require.NoError(t, env.db.Model(&domain.AuditLog{}).
		Where("id IN ?", ids).
		UpdateColumn("performed_at", time.Now().AddDate(0, 0, -120)).Error)

	deleted, err := env.audit.CleanupOldLogs(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	page, err := env.audit.List(ctx, service.AuditLogQueryParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.2:4321"
	assert.Equal(t, "198.51.100.2", service.ClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.10")
	assert.Equal(t, "192.0.2.10", service.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.99")
	assert.Equal(t, "192.0.2.99", service.ClientIP(req))
}
