package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

// Authentication methods recorded on the user context
const (
	AuthTypeJWT    = "jwt"
	AuthTypeAPIKey = "api_key"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Role        domain.UserRole
	RegNumber   string
	TokenID     string
	ExpiresAt   time.Time
	AuthType    string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasAnyRole reports whether the user holds exactly one of the roles.
// Roles do not inherit from each other.
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

func (u *UserContext) IsCustomer() bool {
	return u.Role == domain.RoleCustomer
}

func (u *UserContext) IsEmployee() bool {
	return u.Role == domain.RoleEmployee
}

func (u *UserContext) IsAdministrator() bool {
	return u.Role == domain.RoleAdministrator
}

func (u *UserContext) IsCustomerOrEmployee() bool {
	return u.HasAnyRole(domain.RoleCustomer, domain.RoleEmployee)
}

// NewUserContext builds the context for a loaded user
func NewUserContext(user *domain.User) *UserContext {
	uc := &UserContext{
		UserID:      user.ID,
		DisplayName: user.FullName(),
		Email:       user.Email,
		Role:        user.Role,
	}
	if user.RegNumber != nil {
		uc.RegNumber = *user.RegNumber
	}
	return uc
}
