package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/cache"
	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/http/handler"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/service"
	"github.com/victorytouchdown/vtshop-api/internal/storage"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

type handlers struct {
	db           *gorm.DB
	auth         *handler.AuthHandler
	account      *handler.AccountHandler
	catalog      *handler.CatalogHandler
	cart         *handler.CartHandler
	order        *handler.OrderHandler
	conversation *handler.ConversationHandler
	audit        *handler.AuditHandler
}

func newHandlers(t *testing.T) *handlers {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	users := repository.NewUserRepository(db)
	accountRepo := repository.NewCustomerAccountRepository(db)
	cartRepo := repository.NewCartRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	convRepo := repository.NewConversationRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tokens := auth.NewTokenManager(&config.AuthConfig{
		JWTSecret:     "test-secret-that-is-long-enough-for-hs256",
		Issuer:        "vtshop-test",
		TokenTTL:      60,
		ResetTokenTTL: 30,
	})

	assignment := service.NewAssignmentService(users, accountRepo, logger)
	accounts := service.NewAccountService(db, users, accountRepo, cartRepo, convRepo, orderRepo, assignment, bcrypt.MinCost, logger)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), logger)
	catalog := service.NewCatalogService(repository.NewCategoryRepository(db), productRepo, store, nil, 1<<20, logger)

	return &handlers{
		db:           db,
		auth:         handler.NewAuthHandler(service.NewAuthService(users, tokens, cache.NewMemoryTokenRevoker(), service.NewLogNotifier(logger), bcrypt.MinCost, logger), accounts, audit, logger),
		account:      handler.NewAccountHandler(accounts, logger),
		catalog:      handler.NewCatalogHandler(catalog, 1<<20, logger),
		cart:         handler.NewCartHandler(service.NewCartService(db, accountRepo, cartRepo, lineItemRepo, productRepo, orderRepo, logger), logger),
		order:        handler.NewOrderHandler(service.NewOrderService(db, orderRepo, lineItemRepo, accountRepo, users, logger), logger),
		conversation: handler.NewConversationHandler(service.NewConversationService(db, convRepo, logger), logger),
		audit:        handler.NewAuditHandler(audit, logger),
	}
}

// request builds a request carrying the user and chi URL params given as
// name/value pairs
func request(t *testing.T, method, target string, user *domain.User, body interface{}, params ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if user != nil {
		ctx = auth.WithUserContext(ctx, auth.NewUserContext(user))
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func apiError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr), w.Body.String())
	return apiErr
}
