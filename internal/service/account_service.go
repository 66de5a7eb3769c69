package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/mapper"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
)

// AccountService manages users and the records that hang off a customer
// account: its cart, its assigned employee and the advisor conversation
type AccountService struct {
	db               *gorm.DB
	userRepo         *repository.UserRepository
	accountRepo      *repository.CustomerAccountRepository
	cartRepo         *repository.CartRepository
	conversationRepo *repository.ConversationRepository
	orderRepo        *repository.OrderRepository
	assignment       *AssignmentService
	bcryptCost       int
	logger           *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	accountRepo *repository.CustomerAccountRepository,
	cartRepo *repository.CartRepository,
	conversationRepo *repository.ConversationRepository,
	orderRepo *repository.OrderRepository,
	assignment *AssignmentService,
	bcryptCost int,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		db:               db,
		userRepo:         userRepo,
		accountRepo:      accountRepo,
		cartRepo:         cartRepo,
		conversationRepo: conversationRepo,
		orderRepo:        orderRepo,
		assignment:       assignment,
		bcryptCost:       bcryptCost,
		logger:           logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) hashPassword(password string) (string, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// RegisterCustomer creates a CUSTOMER user with its account, cart, assigned
// employee and advisor conversation in a single transaction
func (s *AccountService) RegisterCustomer(ctx context.Context, req *domain.RegisterCustomerRequest) (*domain.CustomerAccountDTO, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.RoleCustomer,
		IsActive:     true,
	}
	account := &domain.CustomerAccount{IsActive: true}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		taken, err := users.EmailExists(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		account.UserID = user.ID
		if err := s.accountRepo.WithTx(tx).Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create customer account: %w", err)
		}

		if err := s.setCart(ctx, tx, account.ID); err != nil {
			return err
		}
		if err := s.setEmployeeRegNumber(ctx, tx, account); err != nil {
			return err
		}
		return s.setConversation(ctx, tx, account, domain.AdvisorConversationSubject)
	})
	if err != nil {
		return nil, err
	}

	account.User = user
	s.logger.Info("customer registered",
		zap.String("user_id", user.ID.String()),
		zap.String("account_id", account.ID.String()),
		zap.Stringp("employee_reg", account.EmployeeReg))

	dto := mapper.ToCustomerAccountDTO(account)
	return &dto, nil
}

// SetCart makes sure the account owns a cart. Calling it again is a no-op.
func (s *AccountService) SetCart(ctx context.Context, accountID uuid.UUID) error {
	return s.setCart(ctx, nil, accountID)
}

func (s *AccountService) setCart(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error {
	created, err := s.cartRepo.WithTx(tx).CreateForAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	if created {
		s.logger.Debug("cart created", zap.String("account_id", accountID.String()))
	}
	return nil
}

// SetEmployeeRegNumber assigns the least loaded employee to the account when
// it has none. Leaves the account unassigned when no employee exists.
func (s *AccountService) SetEmployeeRegNumber(ctx context.Context, accountID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.WithTx(tx).GetByID(ctx, accountID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCustomerAccountNotFound
			}
			return fmt.Errorf("failed to get customer account: %w", err)
		}
		return s.setEmployeeRegNumber(ctx, tx, account)
	})
}

func (s *AccountService) setEmployeeRegNumber(ctx context.Context, tx *gorm.DB, account *domain.CustomerAccount) error {
	if account.EmployeeReg != nil {
		return nil
	}

	reg, err := s.assignment.ChooseEmployee(ctx, tx)
	if err != nil {
		return err
	}
	if reg == "" {
		s.logger.Warn("no employee available, customer account left unassigned",
			zap.String("account_id", account.ID.String()))
		return nil
	}

	accounts := s.accountRepo.WithTx(tx)
	updated, err := accounts.SetEmployeeReg(ctx, account.ID, reg)
	if err != nil {
		return fmt.Errorf("failed to assign employee: %w", err)
	}
	if !updated {
		current, err := accounts.GetByID(ctx, account.ID)
		if err != nil {
			return fmt.Errorf("failed to reload customer account: %w", err)
		}
		account.EmployeeReg = current.EmployeeReg
		return nil
	}
	account.EmployeeReg = &reg
	return nil
}

// SetConversation opens the conversation between the account's customer and
// its assigned employee unless it already exists. No-op while unassigned.
func (s *AccountService) SetConversation(ctx context.Context, accountID uuid.UUID, subject string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.WithTx(tx).GetByID(ctx, accountID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCustomerAccountNotFound
			}
			return fmt.Errorf("failed to get customer account: %w", err)
		}
		return s.setConversation(ctx, tx, account, subject)
	})
}

func (s *AccountService) setConversation(ctx context.Context, tx *gorm.DB, account *domain.CustomerAccount, subject string) error {
	if account.EmployeeReg == nil {
		return nil
	}

	employee, err := s.userRepo.WithTx(tx).GetByRegNumber(ctx, *account.EmployeeReg)
	if err != nil {
		if repository.IsNotFound(err) {
			s.logger.Warn("assigned employee not found",
				zap.String("account_id", account.ID.String()),
				zap.String("employee_reg", *account.EmployeeReg))
			return nil
		}
		return fmt.Errorf("failed to get employee: %w", err)
	}

	if subject == "" {
		subject = domain.AdvisorConversationSubject
	}
	conv := &domain.Conversation{
		Subject:    subject,
		CustomerID: &account.UserID,
		EmployeeID: &employee.ID,
	}
	created, err := s.conversationRepo.WithTx(tx).CreateWithParticipants(ctx, conv, []uuid.UUID{account.UserID, employee.ID})
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	if created {
		s.logger.Debug("advisor conversation opened",
			zap.String("account_id", account.ID.String()),
			zap.String("conversation_id", conv.ID.String()))
	}
	return nil
}

// AssignUnassignedAccounts assigns an employee and opens the advisor
// conversation for accounts created while no employee existed. Returns the
// number of accounts assigned.
func (s *AccountService) AssignUnassignedAccounts(ctx context.Context, limit int) (int, error) {
	accounts, err := s.accountRepo.ListUnassigned(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unassigned accounts: %w", err)
	}

	assigned := 0
	for i := range accounts {
		account := &accounts[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.setEmployeeRegNumber(ctx, tx, account); err != nil {
				return err
			}
			return s.setConversation(ctx, tx, account, domain.AdvisorConversationSubject)
		})
		if err != nil {
			return assigned, err
		}
		if account.EmployeeReg == nil {
			// No employee yet, the remaining accounts would fail the same way
			break
		}
		assigned++
	}
	return assigned, nil
}

// CreateEmployee creates an EMPLOYEE user with a registration number
func (s *AccountService) CreateEmployee(ctx context.Context, req *domain.CreateEmployeeRequest) (*domain.UserDTO, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.RoleEmployee,
		Company:      domain.EmployeeCompany,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		taken, err := users.EmailExists(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return ErrEmailTaken
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		_, err = s.assignment.EnsureRegNumber(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("employee created",
		zap.String("user_id", user.ID.String()),
		zap.Stringp("reg_number", user.RegNumber))

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// SetEmployeePassword replaces an employee's password
func (s *AccountService) SetEmployeePassword(ctx context.Context, employeeID uuid.UUID, password string) error {
	employee, err := s.userRepo.GetByID(ctx, employeeID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get employee: %w", err)
	}
	if employee.Role != domain.RoleEmployee {
		return ErrUserNotFound
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, employee.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ListEmployees returns every employee, earliest joined first
func (s *AccountService) ListEmployees(ctx context.Context) ([]domain.UserDTO, error) {
	employees, err := s.userRepo.ListByRole(ctx, domain.RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return mapper.ToUserDTOs(employees), nil
}

// ListMyCustomers returns the accounts assigned to the calling employee,
// earliest joined first
func (s *AccountService) ListMyCustomers(ctx context.Context) ([]domain.CustomerAccountDTO, error) {
	reg, err := s.callerRegNumber(ctx)
	if err != nil {
		return nil, err
	}
	if reg == "" {
		return []domain.CustomerAccountDTO{}, nil
	}

	accounts, err := s.accountRepo.ListByEmployeeReg(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer accounts: %w", err)
	}

	dtos := make([]domain.CustomerAccountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = mapper.ToCustomerAccountDTO(&accounts[i])
	}
	return dtos, nil
}

// ListUsers returns a page of users matching the filter
func (s *AccountService) ListUsers(ctx context.Context, filter *repository.UserFilter, page, pageSize int) (*domain.PaginatedResponse, error) {
	users, total, err := s.userRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return paginate(mapper.ToUserDTOs(users), total, page, pageSize), nil
}

// GetCustomerAccount returns an account. Employees only see the accounts
// assigned to them; anything else reads as not found.
func (s *AccountService) GetCustomerAccount(ctx context.Context, id uuid.UUID) (*domain.CustomerAccountDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCustomerAccountNotFound
		}
		return nil, fmt.Errorf("failed to get customer account: %w", err)
	}

	if userCtx.IsEmployee() {
		reg, err := s.callerRegNumber(ctx)
		if err != nil {
			return nil, err
		}
		if account.EmployeeReg == nil || *account.EmployeeReg != reg {
			return nil, ErrCustomerAccountNotFound
		}
	}

	dto := mapper.ToCustomerAccountDTO(account)
	return &dto, nil
}

// GetMySpace returns the calling customer's account, assigned employee,
// advisor conversation and orders
func (s *AccountService) GetMySpace(ctx context.Context) (*domain.MySpaceDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.IsCustomer() {
		return nil, ErrNotCustomer
	}

	account, err := s.accountRepo.GetByUserID(ctx, userCtx.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCustomerAccountNotFound
		}
		return nil, fmt.Errorf("failed to get customer account: %w", err)
	}

	space := &domain.MySpaceDTO{Account: mapper.ToCustomerAccountDTO(account)}

	if account.EmployeeReg != nil {
		employee, err := s.userRepo.GetByRegNumber(ctx, *account.EmployeeReg)
		switch {
		case err == nil:
			dto := mapper.ToUserDTO(employee)
			space.Employee = &dto

			conv, err := s.conversationRepo.GetByPair(ctx, account.UserID, employee.ID)
			if err != nil && !repository.IsNotFound(err) {
				return nil, fmt.Errorf("failed to get conversation: %w", err)
			}
			if conv != nil {
				unread, err := s.conversationRepo.CountUnread(ctx, conv.ID, userCtx.UserID)
				if err != nil {
					return nil, fmt.Errorf("failed to count unread messages: %w", err)
				}
				convDTO := mapper.ToConversationDTO(conv, unread)
				space.Conversation = &convDTO
			}
		case !repository.IsNotFound(err):
			return nil, fmt.Errorf("failed to get employee: %w", err)
		}
	}

	orders, _, err := s.orderRepo.List(ctx, 1, maxPageSize, &repository.OrderFilters{CustomerAccountID: &account.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	space.Orders = mapper.ToOrderDTOs(orders)

	return space, nil
}

// EnsureAdministrator creates the bootstrap administrator when no user uses
// the email yet. Returns true when a user was created.
func (s *AccountService) EnsureAdministrator(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}

	admin := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdministrator,
		Company:      domain.EmployeeCompany,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create administrator: %w", err)
	}

	s.logger.Info("bootstrap administrator created", zap.String("email", email))
	return true, nil
}

// callerRegNumber returns the calling employee's registration number as
// stored, since it may have been assigned after the token was issued
func (s *AccountService) callerRegNumber(ctx context.Context) (string, error) {
	return employeeRegNumber(ctx, s.userRepo)
}

func employeeRegNumber(ctx context.Context, users *repository.UserRepository) (string, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return "", ErrUnauthorized
	}
	if !userCtx.IsEmployee() {
		return "", ErrPermissionDenied
	}

	user, err := users.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get employee: %w", err)
	}
	if user.RegNumber == nil {
		return "", nil
	}
	return *user.RegNumber, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// NormalizePagination clamps page and page size to sane values
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func paginate(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
