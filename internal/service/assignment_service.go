package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/identifier"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
)

// maxIdentifierAttempts bounds the draws made when looking for a free
// reference or registration number
const maxIdentifierAttempts = 64

// AssignmentService picks the employee a customer account is assigned to
type AssignmentService struct {
	userRepo    *repository.UserRepository
	accountRepo *repository.CustomerAccountRepository
	regNumbers  *identifier.Generator
	logger      *zap.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	userRepo *repository.UserRepository,
	accountRepo *repository.CustomerAccountRepository,
	logger *zap.Logger,
) *AssignmentService {
	return &AssignmentService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		regNumbers:  identifier.RegNumbers(),
		logger:      logger,
	}
}

// WithRegNumberGenerator replaces the registration number generator
func (s *AssignmentService) WithRegNumberGenerator(g *identifier.Generator) *AssignmentService {
	s.regNumbers = g
	return s
}

// EnsureRegNumber gives the employee a registration number if it has none
// and returns it. Runs inside tx when tx is not nil.
func (s *AssignmentService) EnsureRegNumber(ctx context.Context, tx *gorm.DB, employee *domain.User) (string, error) {
	if employee.RegNumber != nil && *employee.RegNumber != "" {
		return *employee.RegNumber, nil
	}

	users := s.userRepo.WithTx(tx)

	assigned, err := users.CountWithRegNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count registration numbers: %w", err)
	}
	if assigned >= int64(s.regNumbers.Space()) {
		return "", ErrIdentifierSpaceExhausted
	}

	reg, err := identifier.Unique(ctx, s.regNumbers, users.RegNumberExists, maxIdentifierAttempts)
	if err != nil {
		if errors.Is(err, identifier.ErrSpaceExhausted) {
			return "", ErrIdentifierSpaceExhausted
		}
		return "", fmt.Errorf("failed to generate registration number: %w", err)
	}

	updated, err := users.SetRegNumber(ctx, employee.ID, reg)
	if err != nil {
		return "", fmt.Errorf("failed to set registration number: %w", err)
	}
	if !updated {
		// Assigned concurrently; use the stored one
		current, err := users.GetByID(ctx, employee.ID)
		if err != nil {
			return "", fmt.Errorf("failed to reload employee: %w", err)
		}
		if current.RegNumber == nil {
			return "", fmt.Errorf("employee %s has no registration number", employee.ID)
		}
		reg = *current.RegNumber
	}

	employee.RegNumber = &reg
	s.logger.Info("registration number assigned",
		zap.String("user_id", employee.ID.String()),
		zap.String("reg_number", reg))
	return reg, nil
}

// ChooseEmployee returns the registration number of the active employee with
// the fewest customer accounts, lowest registration number first on ties.
// Returns "" when there is no employee.
func (s *AssignmentService) ChooseEmployee(ctx context.Context, tx *gorm.DB) (string, error) {
	employees, err := s.userRepo.WithTx(tx).ListByRole(ctx, domain.RoleEmployee)
	if err != nil {
		return "", fmt.Errorf("failed to list employees: %w", err)
	}

	regs := make([]string, 0, len(employees))
	for i := range employees {
		if !employees[i].IsActive {
			continue
		}
		reg, err := s.EnsureRegNumber(ctx, tx, &employees[i])
		if err != nil {
			return "", err
		}
		regs = append(regs, reg)
	}
	if len(regs) == 0 {
		return "", nil
	}

	counts, err := s.accountRepo.WithTx(tx).CountByEmployeeReg(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count accounts per employee: %w", err)
	}

	best := ""
	var bestCount int64
	for _, reg := range regs {
		count := counts[reg]
		if best == "" || count < bestCount || (count == bestCount && reg < best) {
			best, bestCount = reg, count
		}
	}
	return best, nil
}
