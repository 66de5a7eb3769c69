package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/service"
)

// maxAuditBodyBytes bounds the request body copied into an audit entry
const maxAuditBodyBytes = 64 << 10

// AuditConfig holds configuration for audit middleware
type AuditConfig struct {
	// SkipPaths contains path prefixes that should not be audited
	SkipPaths []string
	// SkipMethods contains HTTP methods that should not be audited
	SkipMethods []string
}

// DefaultAuditConfig returns default audit configuration. Authentication
// endpoints are skipped because the auth handler records logins itself.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		SkipPaths: []string{
			"/health",
			"/swagger",
			"/api/v1/auth",
		},
		SkipMethods: []string{
			http.MethodGet,
			http.MethodOptions,
			http.MethodHead,
		},
	}
}

// entityTypes maps route segments to audited entity types. The last
// matching segment of a route wins, so /orders/{slug}/comments is a Comment.
var entityTypes = map[string]string{
	"categories":    "Category",
	"products":      "Product",
	"image":         "ProductImage",
	"cart":          "Cart",
	"items":         "LineItem",
	"order":         "Order",
	"orders":        "Order",
	"status":        "Order",
	"comments":      "Comment",
	"conversations": "Conversation",
	"messages":      "Message",
	"customers":     "CustomerAccount",
	"employees":     "Employee",
	"users":         "User",
}

// sensitiveFields are dropped from recorded request bodies
var sensitiveFields = []string{"password", "newPassword", "token", "secret", "apiKey"}

// AuditMiddleware records successful modifications in the audit log
type AuditMiddleware struct {
	auditService *service.AuditLogService
	config       *AuditConfig
	logger       *zap.Logger
	pending      sync.WaitGroup
}

// NewAuditMiddleware creates a new audit middleware
func NewAuditMiddleware(auditService *service.AuditLogService, config *AuditConfig, logger *zap.Logger) *AuditMiddleware {
	if config == nil {
		config = DefaultAuditConfig()
	}
	return &AuditMiddleware{
		auditService: auditService,
		config:       config,
		logger:       logger,
	}
}

// Audit returns middleware that logs modifications to the audit log
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.auditService == nil || !m.shouldAudit(r) {
			next.ServeHTTP(w, r)
			return
		}

		var requestBody []byte
		if r.Body != nil && isJSON(r) && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			requestBody, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditBodyBytes))
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), r.Body))
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}

		entry := m.buildEntry(r, requestBody)
		ctx := context.WithoutCancel(r.Context())
		m.pending.Add(1)
		go func() {
			defer m.pending.Done()
			if err := m.auditService.Log(ctx, r, entry); err != nil {
				m.logger.Warn("failed to create audit log entry",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Error(err))
			}
		}()
	})
}

// Wait blocks until every pending audit write has finished
func (m *AuditMiddleware) Wait() {
	m.pending.Wait()
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func (m *AuditMiddleware) shouldAudit(r *http.Request) bool {
	if slices.Contains(m.config.SkipMethods, r.Method) {
		return false
	}
	for _, skipPath := range m.config.SkipPaths {
		if strings.HasPrefix(r.URL.Path, skipPath) {
			return false
		}
	}
	return true
}

func (m *AuditMiddleware) buildEntry(r *http.Request, requestBody []byte) service.LogEntry {
	entry := service.LogEntry{Action: methodToAction(r.Method)}

	pattern := r.URL.Path
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if p := routeCtx.RoutePattern(); p != "" {
			pattern = p
		}
		if id, err := uuid.Parse(routeCtx.URLParam("id")); err == nil {
			entry.EntityID = &id
		}
		entry.EntityKey = routeCtx.URLParam("slug")
	}
	entry.EntityType = entityTypeFromPath(pattern)

	if len(requestBody) > 0 {
		var parsed map[string]interface{}
		if json.Unmarshal(requestBody, &parsed) == nil {
			for _, field := range sensitiveFields {
				delete(parsed, field)
			}
			entry.NewValues = parsed
		}
	}
	return entry
}

func methodToAction(method string) domain.AuditAction {
	switch method {
	case http.MethodPut, http.MethodPatch:
		return domain.AuditActionUpdate
	case http.MethodDelete:
		return domain.AuditActionDelete
	default:
		return domain.AuditActionCreate
	}
}

func entityTypeFromPath(path string) string {
	entityType := "Unknown"
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if t, ok := entityTypes[part]; ok {
			entityType = t
		}
	}
	return entityType
}
