package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/cache"
	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/http/handler"
	"github.com/victorytouchdown/vtshop-api/internal/http/middleware"
	"github.com/victorytouchdown/vtshop-api/internal/http/router"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/service"
	"github.com/victorytouchdown/vtshop-api/internal/storage"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

const (
	strongPassword = "Touchdown#2024"
	testTimeout    = 2 * time.Second
	testTick       = 10 * time.Millisecond
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type testServer struct {
	db     *gorm.DB
	tokens *auth.TokenManager
	h      http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	cfg := &config.Config{
		App: config.AppConfig{Name: "VTShop API", Environment: "development"},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret-that-is-long-enough-for-hs256",
			Issuer:        "vtshop-test",
			TokenTTL:      60,
			ResetTokenTTL: 30,
		},
		CORS:      config.CORSConfig{AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
		Security:  config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	users := repository.NewUserRepository(db)
	accountRepo := repository.NewCustomerAccountRepository(db)
	cartRepo := repository.NewCartRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	convRepo := repository.NewConversationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tokens := auth.NewTokenManager(&cfg.Auth)
	revoker := cache.NewMemoryTokenRevoker()

	assignment := service.NewAssignmentService(users, accountRepo, logger)
	accounts := service.NewAccountService(db, users, accountRepo, cartRepo, convRepo, orderRepo, assignment, bcrypt.MinCost, logger)
	audit := service.NewAuditLogService(auditRepo, logger)
	catalog := service.NewCatalogService(categoryRepo, productRepo, store, nil, 1<<20, logger)
	authService := service.NewAuthService(users, tokens, revoker, service.NewLogNotifier(logger), bcrypt.MinCost, logger)

	auditMiddleware := middleware.NewAuditMiddleware(audit, nil, logger)
	t.Cleanup(auditMiddleware.Wait)

	rt := router.NewRouter(cfg, logger, db, nil,
		auth.NewMiddleware(tokens, revoker, "", logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		auditMiddleware,
		router.Handlers{
			Auth:         handler.NewAuthHandler(authService, accounts, audit, logger),
			Account:      handler.NewAccountHandler(accounts, logger),
			Catalog:      handler.NewCatalogHandler(catalog, 1<<20, logger),
			Cart:         handler.NewCartHandler(service.NewCartService(db, accountRepo, cartRepo, lineItemRepo, productRepo, orderRepo, logger), logger),
			Order:        handler.NewOrderHandler(service.NewOrderService(db, orderRepo, lineItemRepo, accountRepo, users, logger), logger),
			Conversation: handler.NewConversationHandler(service.NewConversationService(db, convRepo, logger), logger),
			Audit:        handler.NewAuditHandler(audit, logger),
		})

	return &testServer{db: db, tokens: tokens, h: rt.Setup()}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	return w
}

func (s *testServer) tokenFor(t *testing.T, user *domain.User) string {
	t.Helper()
	token, _, err := s.tokens.Issue(user)
	require.NoError(t, err)
	return token
}

// registerAndLogin registers a customer through the API and logs in
func (s *testServer) registerAndLogin(t *testing.T, email string) (domain.CustomerAccountDTO, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", domain.RegisterCustomerRequest{
		Email:     email,
		Password:  strongPassword,
		FirstName: "Casey",
		LastName:  "Customer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var account domain.CustomerAccountDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: email, Password: strongPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok domain.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	return account, tok.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.NotContains(t, body["checks"], "redis")
}

func TestRouter_RegisterLoginMeLogout(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateEmployee(t, s.db, "1001")

	account, token := s.registerAndLogin(t, "Casey@Example.com")
	assert.Equal(t, "casey@example.com", account.User.Email)
	assert.Equal(t, "1001", account.EmployeeReg)

	w := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[domain.AuthUserDTO](t, w)
	assert.Equal(t, domain.RoleCustomer, me.Role)
	assert.Equal(t, "CC", me.Initials)

	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RegisterRejectsWeakPassword(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", domain.RegisterCustomerRequest{
		Email:    "weak@example.com",
		Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "password")
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t, "casey@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "casey@example.com", Password: "Wrong#Password1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/cart/", "/api/v1/orders/", "/api/v1/conversations/", "/api/v1/admin/audit"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_RolePolicy(t *testing.T) {
	s := newTestServer(t)
	employee := testutil.CreateEmployee(t, s.db, "1001")
	admin := testutil.CreateUser(t, s.db, domain.RoleAdministrator)
	_, customerToken := s.registerAndLogin(t, "casey@example.com")
	employeeToken := s.tokenFor(t, employee)
	adminToken := s.tokenFor(t, admin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"customer cannot manage catalog", http.MethodPost, "/api/v1/categories", customerToken, http.StatusForbidden},
		{"customer cannot list customers", http.MethodGet, "/api/v1/customers", customerToken, http.StatusForbidden},
		{"customer cannot read audit log", http.MethodGet, "/api/v1/admin/audit", customerToken, http.StatusForbidden},
		{"employee has no cart", http.MethodGet, "/api/v1/cart/", employeeToken, http.StatusForbidden},
		{"employee cannot place orders", http.MethodPost, "/api/v1/cart/order", employeeToken, http.StatusForbidden},
		{"employee cannot manage employees", http.MethodGet, "/api/v1/admin/employees", employeeToken, http.StatusForbidden},
		{"employee lists customers", http.MethodGet, "/api/v1/customers", employeeToken, http.StatusOK},
		{"administrator cannot list customers", http.MethodGet, "/api/v1/customers", adminToken, http.StatusForbidden},
		{"administrator has no conversations", http.MethodGet, "/api/v1/conversations/", adminToken, http.StatusForbidden},
		{"administrator cannot manage catalog", http.MethodPost, "/api/v1/products", adminToken, http.StatusForbidden},
		{"administrator reads audit log", http.MethodGet, "/api/v1/admin/audit", adminToken, http.StatusOK},
		{"administrator lists employees", http.MethodGet, "/api/v1/admin/employees", adminToken, http.StatusOK},
		{"customer views my space", http.MethodGet, "/api/v1/me/space", customerToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body interface{}
			if tt.method == http.MethodPost {
				body = map[string]string{}
			}
			w := s.do(t, tt.method, tt.path, tt.token, body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_CatalogIsPublic(t *testing.T) {
	s := newTestServer(t)
	employee := testutil.CreateEmployee(t, s.db, "1001")
	token := s.tokenFor(t, employee)

	w := s.do(t, http.MethodPost, "/api/v1/categories", token, domain.CreateCategoryRequest{Name: "Stickers"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	category := decode[domain.CategoryDTO](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/products", token, domain.CreateProductRequest{
		Name:       "Round Sticker",
		Price:      "0.25",
		CategoryID: &category.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[domain.ProductDTO](t, w)
	assert.Equal(t, "round-sticker", product.Slug)

	w = s.do(t, http.MethodGet, "/api/v1/products?category="+category.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Data  []domain.ProductDTO `json:"data"`
		Total int64               `json:"total"`
	}](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "0.25", page.Data[0].Price)

	w = s.do(t, http.MethodGet, "/api/v1/categories/"+category.Slug, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ProductImage(t *testing.T) {
	s := newTestServer(t)
	employee := testutil.CreateEmployee(t, s.db, "1001")
	product := testutil.CreateProduct(t, s.db, "Square Sticker", "0.30")

	upload := func(content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "sticker.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPut, "/api/v1/products/"+product.Slug+"/image", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, employee))
		w := httptest.NewRecorder()
		s.h.ServeHTTP(w, req)
		return w
	}

	w := s.do(t, http.MethodGet, "/api/v1/products/"+product.Slug+"/image", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = upload([]byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(pngHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[domain.ProductDTO](t, w).HasImage)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+product.Slug+"/image", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, w.Body.Bytes())
}

func TestRouter_CartToOrder(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateEmployee(t, s.db, "1001")
	product := testutil.CreateProduct(t, s.db, "Round Sticker", "0.25")
	_, token := s.registerAndLogin(t, "casey@example.com")

	// An empty cart yields no order
	w := s.do(t, http.MethodPost, "/api/v1/cart/order", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[domain.MakeOrderResponse](t, w).Created)

	// Below the minimum quantity nothing is added
	w = s.do(t, http.MethodPost, "/api/v1/cart/items", token, domain.CartLineItemRequest{ProductID: product.ID, Quantity: 999})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[domain.CartDTO](t, w).LineItems)

	w = s.do(t, http.MethodPost, "/api/v1/cart/items", token, domain.CartLineItemRequest{ProductID: product.ID, Quantity: 2000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := decode[domain.CartDTO](t, w)
	require.Len(t, cart.LineItems, 1)
	assert.Equal(t, "500.00", cart.TotalPrice)

	w = s.do(t, http.MethodPost, "/api/v1/cart/order", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[domain.MakeOrderResponse](t, w)
	require.True(t, resp.Created)
	require.NotNil(t, resp.Order)
	assert.Equal(t, domain.OrderStatusCreated, resp.Order.Status)
	assert.Equal(t, "500.00", resp.Order.TotalPrice)
	assert.Equal(t, "100.00", resp.Order.VATAmount)
	assert.Equal(t, "600.00", resp.Order.InclVATPrice)

	w = s.do(t, http.MethodGet, "/api/v1/cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[domain.CartDTO](t, w).LineItems)

	w = s.do(t, http.MethodGet, "/api/v1/orders/"+resp.Order.Slug, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resp.Order.RefNumber, decode[domain.OrderDTO](t, w).RefNumber)
}

func TestRouter_OrderScoping(t *testing.T) {
	s := newTestServer(t)
	assigned := testutil.CreateEmployee(t, s.db, "1001")
	product := testutil.CreateProduct(t, s.db, "Round Sticker", "0.25")
	_, ownerToken := s.registerAndLogin(t, "owner@example.com")

	s.do(t, http.MethodPost, "/api/v1/cart/items", ownerToken, domain.CartLineItemRequest{ProductID: product.ID, Quantity: 1000})
	w := s.do(t, http.MethodPost, "/api/v1/cart/order", ownerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[domain.MakeOrderResponse](t, w).Order

	other := testutil.CreateEmployee(t, s.db, "1002")
	_, strangerToken := s.registerAndLogin(t, "stranger@example.com")

	// Another customer and an unassigned employee see no such order
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/orders/"+order.Slug, strangerToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/orders/"+order.Slug, s.tokenFor(t, other), nil).Code)

	assignedToken := s.tokenFor(t, assigned)
	w = s.do(t, http.MethodPut, "/api/v1/orders/"+order.Slug+"/status", assignedToken,
		domain.UpdateOrderStatusRequest{Status: domain.OrderStatusProcessing})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.OrderStatusProcessing, decode[domain.OrderDTO](t, w).Status)

	w = s.do(t, http.MethodPost, "/api/v1/orders/"+order.Slug+"/comments", assignedToken,
		domain.AddCommentRequest{Content: "Printing tomorrow"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/orders/"+order.Slug+"/comments", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var contents []string
	for _, c := range decode[[]domain.CommentDTO](t, w) {
		contents = append(contents, c.Content)
	}
	assert.Contains(t, contents, "Printing tomorrow")
	assert.Contains(t, contents, domain.OrderCreatedComment)

	// Customers may not change status
	w = s.do(t, http.MethodPut, "/api/v1/orders/"+order.Slug+"/status", ownerToken,
		domain.UpdateOrderStatusRequest{Status: domain.OrderStatusCancelled})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Conversation(t *testing.T) {
	s := newTestServer(t)
	employee := testutil.CreateEmployee(t, s.db, "1001")
	_, customerToken := s.registerAndLogin(t, "casey@example.com")
	employeeToken := s.tokenFor(t, employee)

	w := s.do(t, http.MethodGet, "/api/v1/conversations/", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	convs := decode[[]domain.ConversationDTO](t, w)
	require.Len(t, convs, 1)
	convID := convs[0].ID.String()

	w = s.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", customerToken,
		domain.PostMessageRequest{Content: "Can you print 5000 by Friday?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages?last=1", employeeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]domain.MessageDTO](t, w)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Can you print 5000 by Friday?", msgs[0].Content)

	w = s.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/read", employeeToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, w)["marked"])

	w = s.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages?last=-1", employeeToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/conversations/not-a-uuid", employeeToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AuditTrail(t *testing.T) {
	s := newTestServer(t)
	employee := testutil.CreateEmployee(t, s.db, "1001")
	admin := testutil.CreateUser(t, s.db, domain.RoleAdministrator)

	w := s.do(t, http.MethodPost, "/api/v1/categories", s.tokenFor(t, employee), domain.CreateCategoryRequest{Name: "Labels"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Let the asynchronous audit write land before reading it back
	waitForAudit(t, s, 1)

	w = s.do(t, http.MethodGet, "/api/v1/admin/audit?entityType=Category", s.tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[struct {
		Data []domain.AuditLogDTO `json:"data"`
	}](t, w)
	require.Len(t, page.Data, 1)
	assert.Equal(t, domain.AuditActionCreate, page.Data[0].Action)
	assert.Equal(t, employee.ID.String(), page.Data[0].UserID)

	w = s.do(t, http.MethodGet, "/api/v1/admin/audit?startTime=yesterday", s.tokenFor(t, admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func waitForAudit(t *testing.T, s *testServer, n int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		var count int64
		s.db.Model(&domain.AuditLog{}).Count(&count)
		return count >= n
	}, testTimeout, testTick)
}
