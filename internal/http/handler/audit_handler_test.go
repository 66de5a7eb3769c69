package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

func seedAuditLog(t *testing.T, h *handlers, action domain.AuditAction, entityType string, at time.Time) {
	t.Helper()
	require.NoError(t, h.db.WithContext(context.Background()).Create(&domain.AuditLog{
		Action:      action,
		EntityType:  entityType,
		NewValues:   "null",
		PerformedAt: at,
	}).Error)
}

func TestAuditHandler_List(t *testing.T) {
	h := newHandlers(t)
	admin := testutil.CreateUser(t, h.db, domain.RoleAdministrator)
	now := time.Now().UTC()
	seedAuditLog(t, h, domain.AuditActionCreate, "Product", now.Add(-48*time.Hour))
	seedAuditLog(t, h, domain.AuditActionUpdate, "Product", now.Add(-time.Hour))
	seedAuditLog(t, h, domain.AuditActionCreate, "Order", now)

	type page struct {
		Data  []domain.AuditLogDTO `json:"data"`
		Total int64                `json:"total"`
	}
	list := func(query string) page {
		w := serve(h.audit.List, request(t, http.MethodGet, "/admin/audit"+query, admin, nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var p page
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		return p
	}

	assert.Equal(t, int64(3), list("").Total)
	assert.Equal(t, int64(2), list("?entityType=Product").Total)
	assert.Equal(t, int64(1), list("?entityType=Product&action=update").Total)
	assert.Equal(t, int64(2), list("?startTime="+now.Add(-2*time.Hour).Format(time.RFC3339)).Total)

	newest := list("?pageSize=1")
	require.Len(t, newest.Data, 1)
	assert.Equal(t, "Order", newest.Data[0].EntityType)
}

func TestAuditHandler_List_BadFilters(t *testing.T) {
	h := newHandlers(t)
	admin := testutil.CreateUser(t, h.db, domain.RoleAdministrator)

	for _, query := range []string{"?entityId=123", "?startTime=2024-13-01", "?endTime=tomorrow"} {
		w := serve(h.audit.List, request(t, http.MethodGet, "/admin/audit"+query, admin, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}
