package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/identifier"
	"github.com/victorytouchdown/vtshop-api/internal/mapper"
	"github.com/victorytouchdown/vtshop-api/internal/pricing"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/slug"
)

var errQuantityTooLarge = fmt.Errorf("%w: quantity must not exceed %d", ErrInvalidInput, domain.MaxLineItemQuantity)

// CartService handles the calling customer's cart and its conversion into
// an order. Every mutation holds a row lock on the cart for the duration of
// its transaction.
type CartService struct {
	db           *gorm.DB
	accountRepo  *repository.CustomerAccountRepository
	cartRepo     *repository.CartRepository
	lineItemRepo *repository.LineItemRepository
	productRepo  *repository.ProductRepository
	orderRepo    *repository.OrderRepository
	refNumbers   *identifier.Generator
	logger       *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(
	db *gorm.DB,
	accountRepo *repository.CustomerAccountRepository,
	cartRepo *repository.CartRepository,
	lineItemRepo *repository.LineItemRepository,
	productRepo *repository.ProductRepository,
	orderRepo *repository.OrderRepository,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		db:           db,
		accountRepo:  accountRepo,
		cartRepo:     cartRepo,
		lineItemRepo: lineItemRepo,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		refNumbers:   identifier.RefNumbers(),
		logger:       logger,
	}
}

// WithRefNumberGenerator replaces the order reference number generator
func (s *CartService) WithRefNumberGenerator(g *identifier.Generator) *CartService {
	s.refNumbers = g
	return s
}

// GetCart returns the caller's cart, creating it on first access
func (s *CartService) GetCart(ctx context.Context) (*domain.CartDTO, error) {
	account, err := s.callerAccount(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.cartRepo.CreateForAccount(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart, err := s.cartRepo.GetByAccountID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	dto := mapper.ToCartDTO(cart)
	return &dto, nil
}

// AddLineItem adds quantity units of the product. A product not yet in the
// cart is only added when quantity reaches the minimum; a product already in
// the cart has its quantity incremented.
func (s *CartService) AddLineItem(ctx context.Context, productID uuid.UUID, quantity int) (*domain.CartDTO, error) {
	if quantity > domain.MaxLineItemQuantity {
		return nil, errQuantityTooLarge
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, func(tx *gorm.DB, cart *domain.Cart) error {
		items := s.lineItemRepo.WithTx(tx)

		item, err := items.GetInCart(ctx, cart.ID, product.ID)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("failed to get line item: %w", err)
		}

		if item == nil {
			if quantity < domain.MinLineItemQuantity {
				return nil
			}
			item = &domain.LineItem{ProductID: product.ID, CartID: &cart.ID, Quantity: quantity}
			item.Normalize(product.Price)
			if err := items.Create(ctx, item); err != nil {
				return fmt.Errorf("failed to create line item: %w", err)
			}
			return nil
		}

		if item.Quantity+quantity > domain.MaxLineItemQuantity {
			return errQuantityTooLarge
		}
		item.Quantity += quantity
		item.Normalize(product.Price)
		if err := items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to save line item: %w", err)
		}
		return nil
	})
}

// UpdateLineItem sets the product's quantity, adding the product when it is
// not in the cart yet. Quantities below the minimum are ignored.
func (s *CartService) UpdateLineItem(ctx context.Context, productID uuid.UUID, quantity int) (*domain.CartDTO, error) {
	if quantity > domain.MaxLineItemQuantity {
		return nil, errQuantityTooLarge
	}
	product, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, func(tx *gorm.DB, cart *domain.Cart) error {
		if quantity < domain.MinLineItemQuantity {
			return nil
		}

		items := s.lineItemRepo.WithTx(tx)
		item, err := items.GetInCart(ctx, cart.ID, product.ID)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("failed to get line item: %w", err)
		}

		if item == nil {
			item = &domain.LineItem{ProductID: product.ID, CartID: &cart.ID, Quantity: quantity}
			item.Normalize(product.Price)
			if err := items.Create(ctx, item); err != nil {
				return fmt.Errorf("failed to create line item: %w", err)
			}
			return nil
		}

		item.Quantity = quantity
		item.Normalize(product.Price)
		if err := items.Save(ctx, item); err != nil {
			return fmt.Errorf("failed to save line item: %w", err)
		}
		return nil
	})
}

// RemoveLineItem deletes one line item from the cart
func (s *CartService) RemoveLineItem(ctx context.Context, lineItemID uuid.UUID) (*domain.CartDTO, error) {
	return s.mutate(ctx, func(tx *gorm.DB, cart *domain.Cart) error {
		err := s.lineItemRepo.WithTx(tx).DeleteFromCart(ctx, cart.ID, lineItemID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrLineItemNotFound
			}
			return fmt.Errorf("failed to delete line item: %w", err)
		}
		return nil
	})
}

// EmptyCart deletes every line item of the cart
func (s *CartService) EmptyCart(ctx context.Context) (*domain.CartDTO, error) {
	return s.mutate(ctx, func(tx *gorm.DB, cart *domain.Cart) error {
		if _, err := s.lineItemRepo.WithTx(tx).DeleteAllFromCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to empty cart: %w", err)
		}
		return nil
	})
}

// MakeOrder turns the cart into an order: the line items move to the order,
// the order totals are computed and the cart is left empty. An empty cart
// yields a nil order and no error.
func (s *CartService) MakeOrder(ctx context.Context) (*domain.OrderDTO, error) {
	account, err := s.callerAccount(ctx)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.lockCart(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		cart.Recalculate()
		if cart.TotalPrice.IsZero() {
			return nil
		}

		orders := s.orderRepo.WithTx(tx)
		items := s.lineItemRepo.WithTx(tx)

		ref, err := identifier.Unique(ctx, s.refNumbers, orders.RefNumberExists, maxIdentifierAttempts)
		if err != nil {
			if errors.Is(err, identifier.ErrSpaceExhausted) {
				return ErrIdentifierSpaceExhausted
			}
			return fmt.Errorf("failed to generate reference number: %w", err)
		}

		created := &domain.Order{
			Status:            domain.OrderStatusCreated,
			RefNumber:         ref,
			Slug:              slug.Make(ref),
			CustomerAccountID: account.ID,
		}
		if err := orders.Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := orders.CreateComment(ctx, &domain.Comment{OrderID: created.ID, Content: domain.OrderCreatedComment}); err != nil {
			return fmt.Errorf("failed to add order comment: %w", err)
		}

		if _, err := items.MoveCartToOrder(ctx, cart.ID, created.ID); err != nil {
			return fmt.Errorf("failed to move line items: %w", err)
		}

		created.LineItems, err = items.ListByOrder(ctx, created.ID)
		if err != nil {
			return fmt.Errorf("failed to list order line items: %w", err)
		}
		created.Recalculate()
		if err := orders.SaveTotals(ctx, created); err != nil {
			return fmt.Errorf("failed to save order totals: %w", err)
		}

		cart.LineItems = nil
		cart.Recalculate()
		if err := s.cartRepo.WithTx(tx).UpdateTotal(ctx, cart); err != nil {
			return fmt.Errorf("failed to reset cart total: %w", err)
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	s.logger.Info("order created",
		zap.String("order_ref", order.RefNumber),
		zap.String("account_id", account.ID.String()),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	whole, err := s.orderRepo.GetBySlug(ctx, order.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	dto := mapper.ToOrderDTO(whole)
	return &dto, nil
}

// ReconcileTotals recomputes every cart total from its line items and fixes
// the ones that drifted. Returns the number of carts corrected.
func (s *CartService) ReconcileTotals(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	fixed := 0
	for offset := 0; ; offset += batchSize {
		ids, err := s.cartRepo.ListIDs(ctx, offset, batchSize)
		if err != nil {
			return fixed, fmt.Errorf("failed to list carts: %w", err)
		}

		for _, id := range ids {
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				carts := s.cartRepo.WithTx(tx)
				cart, err := carts.LockByID(ctx, id)
				if err != nil {
					return err
				}
				stored := cart.TotalPrice
				cart.Recalculate()
				if stored.Equal(cart.TotalPrice) {
					return nil
				}
				if err := carts.UpdateTotal(ctx, cart); err != nil {
					return err
				}
				fixed++
				s.logger.Warn("cart total corrected",
					zap.String("cart_id", cart.ID.String()),
					zap.String("stored", stored.StringFixed(2)),
					zap.String("computed", cart.TotalPrice.StringFixed(2)))
				return nil
			})
			if err != nil && !repository.IsNotFound(err) {
				return fixed, fmt.Errorf("failed to reconcile cart %s: %w", id, err)
			}
		}

		if len(ids) < batchSize {
			return fixed, nil
		}
	}
}

// mutate runs fn on the caller's locked cart, then recomputes and stores the
// cart total
func (s *CartService) mutate(ctx context.Context, fn func(tx *gorm.DB, cart *domain.Cart) error) (*domain.CartDTO, error) {
	account, err := s.callerAccount(ctx)
	if err != nil {
		return nil, err
	}

	var result *domain.Cart
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.lockCart(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if err := fn(tx, cart); err != nil {
			return err
		}

		carts := s.cartRepo.WithTx(tx)
		updated, err := carts.GetByID(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("failed to reload cart: %w", err)
		}
		updated.Recalculate()
		if _, inclVAT := pricing.VATPrices(updated.TotalPrice); inclVAT.GreaterThan(domain.MaxAmount) {
			return fmt.Errorf("%w: cart total exceeds %s", ErrInvalidInput, domain.MaxAmount.StringFixed(2))
		}
		if err := carts.UpdateTotal(ctx, updated); err != nil {
			return fmt.Errorf("failed to save cart total: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToCartDTO(result)
	return &dto, nil
}

// lockCart creates the account's cart if needed and locks it
func (s *CartService) lockCart(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*domain.Cart, error) {
	carts := s.cartRepo.WithTx(tx)
	if _, err := carts.CreateForAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	cart, err := carts.LockByAccountID(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) getProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *CartService) callerAccount(ctx context.Context) (*domain.CustomerAccount, error) {
	return customerAccount(ctx, s.accountRepo)
}

func customerAccount(ctx context.Context, accounts *repository.CustomerAccountRepository) (*domain.CustomerAccount, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.IsCustomer() {
		return nil, ErrNotCustomer
	}

	account, err := accounts.GetByUserID(ctx, userCtx.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCustomerAccountNotFound
		}
		return nil, fmt.Errorf("failed to get customer account: %w", err)
	}
	return account, nil
}
