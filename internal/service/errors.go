package service

import (
	"errors"

	"github.com/victorytouchdown/vtshop-api/internal/identifier"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	ErrCustomerAccountNotFound = errors.New("customer account not found")
	ErrCartNotFound            = errors.New("cart not found")
	ErrLineItemNotFound        = errors.New("line item not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrConversationNotFound    = errors.New("conversation not found")
	ErrImageNotFound           = errors.New("product has no image")

	// ErrEmailTaken is returned when registering an email that is already in use
	ErrEmailTaken = errors.New("a user with this email already exists")

	ErrDuplicateCategory    = errors.New("a category with this name already exists")
	ErrDuplicateProduct     = errors.New("a product with this name already exists")
	ErrReservedCategoryName = errors.New("this category name is reserved")
	ErrInvalidPrice         = errors.New("price must be a non-negative amount with at most two decimals")
	ErrInvalidOrderStatus   = errors.New("invalid order status")

	// ErrInvalidCredentials covers unknown email, wrong password and inactive user alike
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrWeakPassword wraps the failures reported by auth.ValidatePassword
	ErrWeakPassword = errors.New("password does not meet the requirements")

	ErrInvalidResetToken = errors.New("invalid or expired password reset token")

	// ErrNotCustomer is returned when a customer-only operation is called for another role
	ErrNotCustomer = errors.New("operation only available to customers")

	// ErrIdentifierSpaceExhausted is returned when no free reference or
	// registration number could be found
	ErrIdentifierSpaceExhausted = identifier.ErrSpaceExhausted
)
