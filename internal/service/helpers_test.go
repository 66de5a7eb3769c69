package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/cache"
	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/service"
	"github.com/victorytouchdown/vtshop-api/internal/storage"
	"github.com/victorytouchdown/vtshop-api/internal/testutil"
)

const strongPassword = "Touchdown#2024"

type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, user *domain.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = make(map[string]string)
	}
	n.tokens[user.Email] = token
	return nil
}

func (n *captureNotifier) token(email string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	tok, ok := n.tokens[email]
	return tok, ok
}

type testEnv struct {
	db            *gorm.DB
	users         *repository.UserRepository
	accountRepo   *repository.CustomerAccountRepository
	lineItemRepo  *repository.LineItemRepository
	convRepo      *repository.ConversationRepository
	assignment    *service.AssignmentService
	accounts      *service.AccountService
	carts         *service.CartService
	orders        *service.OrderService
	conversations *service.ConversationService
	catalog       *service.CatalogService
	auth          *service.AuthService
	audit         *service.AuditLogService
	tokens        *auth.TokenManager
	revoker       *cache.MemoryTokenRevoker
	notifier      *captureNotifier
	store         storage.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

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

	tokens := auth.NewTokenManager(&config.AuthConfig{
		JWTSecret:     "test-secret-that-is-long-enough-for-hs256",
		Issuer:        "vtshop-test",
		TokenTTL:      60,
		ResetTokenTTL: 30,
	})
	revoker := cache.NewMemoryTokenRevoker()
	notifier := &captureNotifier{}

	assignment := service.NewAssignmentService(users, accountRepo, logger)

	return &testEnv{
		db:            db,
		users:         users,
		accountRepo:   accountRepo,
		lineItemRepo:  lineItemRepo,
		convRepo:      convRepo,
		assignment:    assignment,
		accounts:      service.NewAccountService(db, users, accountRepo, cartRepo, convRepo, orderRepo, assignment, bcrypt.MinCost, logger),
		carts:         service.NewCartService(db, accountRepo, cartRepo, lineItemRepo, productRepo, orderRepo, logger),
		orders:        service.NewOrderService(db, orderRepo, lineItemRepo, accountRepo, users, logger),
		conversations: service.NewConversationService(db, convRepo, logger),
		catalog:       service.NewCatalogService(categoryRepo, productRepo, store, nil, 1024*1024, logger),
		auth:          service.NewAuthService(users, tokens, revoker, notifier, bcrypt.MinCost, logger),
		audit:         service.NewAuditLogService(auditRepo, logger),
		tokens:        tokens,
		revoker:       revoker,
		notifier:      notifier,
		store:         store,
	}
}

func userCtx(user *domain.User) context.Context {
	uc := auth.NewUserContext(user)
	uc.AuthType = auth.AuthTypeJWT
	uc.ExpiresAt = time.Now().Add(time.Hour)
	return auth.WithUserContext(context.Background(), uc)
}

func adminCtx() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		Role:        domain.RoleAdministrator,
		DisplayName: "Admin",
		Email:       "admin@example.com",
	})
}

// registerCustomer registers a customer through the service and returns the
// stored account with its user
func (e *testEnv) registerCustomer(t *testing.T, email string) (*domain.CustomerAccount, context.Context) {
	t.Helper()
	dto, err := e.accounts.RegisterCustomer(context.Background(), &domain.RegisterCustomerRequest{
		Email:     email,
		Password:  strongPassword,
		FirstName: "Casey",
		LastName:  "Customer",
	})
	require.NoError(t, err)

	account, err := e.accountRepo.GetByID(context.Background(), dto.ID)
	require.NoError(t, err)
	return account, userCtx(account.User)
}
