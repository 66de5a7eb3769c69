package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Token purposes. A token is only accepted for the purpose it was issued for.
const (
	PurposeAccess        = "access"
	PurposePasswordReset = "password_reset"
)

// Claims represents the claims carried by tokens issued by the API
type Claims struct {
	Email     string          `json:"email"`
	Name      string          `json:"name,omitempty"`
	Role      domain.UserRole `json:"role"`
	RegNumber string          `json:"reg,omitempty"`
	Purpose   string          `json:"purpose"`
	// Fingerprint binds a reset token to the password hash it may replace
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens
type TokenManager struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

// NewTokenManager creates a token manager from the auth configuration
func NewTokenManager(cfg *config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		ttl:      cfg.TokenTTLDuration(),
		resetTTL: cfg.ResetTokenTTLDuration(),
		now:      time.Now,
	}
}

// WithClock returns a copy of the manager reading time from now
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *m
	clone.now = now
	return &clone
}

// Issue creates an access token for the user
func (m *TokenManager) Issue(user *domain.User) (string, *Claims, error) {
	claims := m.newClaims(user, PurposeAccess, m.ttl)
	signed, err := m.sign(claims)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssuePasswordReset creates a reset token that stops validating once the
// user's password hash changes
func (m *TokenManager) IssuePasswordReset(user *domain.User) (string, error) {
	claims := m.newClaims(user, PurposePasswordReset, m.resetTTL)
	claims.Fingerprint = PasswordFingerprint(user.PasswordHash)
	return m.sign(claims)
}

// Validate parses the token and checks signature, issuer, expiry and purpose
func (m *TokenManager) Validate(tokenString, purpose string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserContext converts access token claims into a user context
func (c *Claims) UserContext() *UserContext {
	uc := &UserContext{
		UserID:      uuid.MustParse(c.Subject),
		DisplayName: c.Name,
		Email:       c.Email,
		Role:        c.Role,
		RegNumber:   c.RegNumber,
		TokenID:     c.ID,
		AuthType:    AuthTypeJWT,
	}
	if c.ExpiresAt != nil {
		uc.ExpiresAt = c.ExpiresAt.Time
	}
	return uc
}

// PasswordFingerprint returns a short digest of a password hash
func PasswordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

func (m *TokenManager) newClaims(user *domain.User, purpose string, ttl time.Duration) *Claims {
	now := m.now()
	claims := &Claims{
		Email:   user.Email,
		Name:    user.FullName(),
		Role:    user.Role,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if user.RegNumber != nil {
		claims.RegNumber = *user.RegNumber
	}
	return claims
}

func (m *TokenManager) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
