package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/mapper"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
)

// OrderService exposes orders according to the caller's role: customers see
// their own, employees those of the accounts assigned to them and
// administrators every order
type OrderService struct {
	db           *gorm.DB
	orderRepo    *repository.OrderRepository
	lineItemRepo *repository.LineItemRepository
	accountRepo  *repository.CustomerAccountRepository
	userRepo     *repository.UserRepository
	logger       *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	lineItemRepo *repository.LineItemRepository,
	accountRepo *repository.CustomerAccountRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		db:           db,
		orderRepo:    orderRepo,
		lineItemRepo: lineItemRepo,
		accountRepo:  accountRepo,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// List returns a page of the orders visible to the caller, newest first
func (s *OrderService) List(ctx context.Context, page, pageSize int, status *domain.OrderStatus) (*domain.PaginatedResponse, error) {
	if status != nil && !status.IsValid() {
		return nil, ErrInvalidOrderStatus
	}

	filters, visible, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	if !visible {
		return paginate([]domain.OrderDTO{}, 0, page, pageSize), nil
	}
	filters.Status = status

	orders, total, err := s.orderRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return paginate(mapper.ToOrderDTOs(orders), total, page, pageSize), nil
}

// GetBySlug returns the whole order with line items and comments
func (s *OrderService) GetBySlug(ctx context.Context, slug string) (*domain.OrderDTO, error) {
	order, err := s.getVisible(ctx, slug)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// UpdateStatus sets the order status. Any legal status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, slug string, status domain.OrderStatus) (*domain.OrderDTO, error) {
	if !status.IsValid() {
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.getVisible(ctx, slug)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		if err := orders.UpdateStatus(ctx, order.ID, status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		items, err := s.lineItemRepo.WithTx(tx).ListByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to list order line items: %w", err)
		}
		order.LineItems = items
		order.Recalculate()
		return orders.SaveTotals(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("order_ref", order.RefNumber),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)))

	return s.GetBySlug(ctx, slug)
}

// AddComment attaches a comment to the order. Empty content stores the
// default order creation comment.
func (s *OrderService) AddComment(ctx context.Context, slug, content string) (*domain.CommentDTO, error) {
	order, err := s.getVisible(ctx, slug)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		content = domain.OrderCreatedComment
	}

	comment := &domain.Comment{OrderID: order.ID, Content: content}
	if err := s.orderRepo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	dto := mapper.ToCommentDTO(comment)
	return &dto, nil
}

// ListComments returns the order's comments, newest first
func (s *OrderService) ListComments(ctx context.Context, slug string) ([]domain.CommentDTO, error) {
	order, err := s.getVisible(ctx, slug)
	if err != nil {
		return nil, err
	}

	comments, err := s.orderRepo.ListComments(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return mapper.ToCommentDTOs(comments), nil
}

// getVisible loads the order and checks the caller may see it. Orders out of
// scope read as not found.
func (s *OrderService) getVisible(ctx context.Context, slug string) (*domain.Order, error) {
	filters, visible, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrOrderNotFound
	}

	order, err := s.orderRepo.GetBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if filters.CustomerAccountID != nil && order.CustomerAccountID != *filters.CustomerAccountID {
		return nil, ErrOrderNotFound
	}
	if filters.EmployeeReg != "" {
		if order.CustomerAccount == nil || order.CustomerAccount.EmployeeReg == nil ||
			*order.CustomerAccount.EmployeeReg != filters.EmployeeReg {
			return nil, ErrOrderNotFound
		}
	}
	return order, nil
}

// scope builds the filter restricting orders to the caller. visible is false
// when the caller can see no order at all.
func (s *OrderService) scope(ctx context.Context) (filters *repository.OrderFilters, visible bool, err error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, false, ErrUnauthorized
	}

	filters = &repository.OrderFilters{}
	switch userCtx.Role {
	case domain.RoleAdministrator:
		return filters, true, nil
	case domain.RoleEmployee:
		reg, err := employeeRegNumber(ctx, s.userRepo)
		if err != nil {
			return nil, false, err
		}
		if reg == "" {
			return filters, false, nil
		}
		filters.EmployeeReg = reg
		return filters, true, nil
	case domain.RoleCustomer:
		account, err := customerAccount(ctx, s.accountRepo)
		if err != nil {
			if errors.Is(err, ErrCustomerAccountNotFound) {
				return filters, false, nil
			}
			return nil, false, err
		}
		id := account.ID
		filters.CustomerAccountID = &id
		return filters, true, nil
	}
	return nil, false, ErrPermissionDenied
}
