package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

// AuditHandler handles audit log related HTTP requests
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of audit log entries with optional filters, newest first
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param userId query string false "Filter by user ID"
// @Param action query string false "Filter by action type" Enums(create, update, delete, login, logout)
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AuditLogDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	params := service.AuditLogQueryParams{
		UserID:     q.Get("userId"),
		EntityType: q.Get("entityType"),
		Page:       page,
		PageSize:   pageSize,
	}

	if actionStr := q.Get("action"); actionStr != "" {
		action := domain.AuditAction(actionStr)
		params.Action = &action
	}

	if entityIDStr := q.Get("entityId"); entityIDStr != "" {
		entityID, ok := parseUUIDParam(w, entityIDStr, "entity ID")
		if !ok {
			return
		}
		params.EntityID = &entityID
	}

	var ok bool
	if params.StartTime, ok = parseTimeQuery(w, r, "startTime"); !ok {
		return
	}
	if params.EndTime, ok = parseTimeQuery(w, r, "endTime"); !ok {
		return
	}

	result, err := h.auditService.List(r.Context(), params)
	if err != nil {
		handleServiceError(w, h.logger, err, "list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func parseTimeQuery(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" format, expected RFC3339")
		return nil, false
	}
	return &t, true
}
