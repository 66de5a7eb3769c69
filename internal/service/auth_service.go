package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/mapper"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
)

// PasswordResetNotifier delivers password reset tokens to users
type PasswordResetNotifier interface {
	SendPasswordReset(ctx context.Context, user *domain.User, token string) error
}

// LogNotifier records reset requests in the log instead of sending mail.
// The token itself only appears at debug level.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier writing to logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, user *domain.User, token string) error {
	n.logger.Info("password reset requested", zap.String("user_id", user.ID.String()))
	n.logger.Debug("password reset token", zap.String("email", user.Email), zap.String("token", token))
	return nil
}

// AuthService handles login, logout and password resets
type AuthService struct {
	userRepo   *repository.UserRepository
	tokens     *auth.TokenManager
	revoker    auth.TokenRevoker
	notifier   PasswordResetNotifier
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo *repository.UserRepository,
	tokens *auth.TokenManager,
	revoker auth.TokenRevoker,
	notifier PasswordResetNotifier,
	bcryptCost int,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		revoker:    revoker,
		notifier:   notifier,
		bcryptCost: bcryptCost,
		logger:     logger,
		now:        time.Now,
	}
}

// Login checks the credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		User:      mapper.ToAuthUserDTO(user),
	}, nil
}

// Logout revokes the caller's token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if userCtx.AuthType != auth.AuthTypeJWT || userCtx.TokenID == "" {
		return nil
	}

	ttl := userCtx.ExpiresAt.Sub(s.now())
	if err := s.revoker.Revoke(ctx, userCtx.TokenID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the caller as stored
func (s *AuthService) Me(ctx context.Context) (*domain.AuthUserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if userCtx.AuthType == auth.AuthTypeAPIKey {
		return &domain.AuthUserDTO{
			ID:       userCtx.UserID.String(),
			Name:     userCtx.DisplayName,
			Email:    userCtx.Email,
			Role:     userCtx.Role,
			Initials: mapper.Initials(userCtx.DisplayName, "", userCtx.Email),
		}, nil
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	dto := mapper.ToAuthUserDTO(user)
	return &dto, nil
}

// RequestPasswordReset sends a reset token to an active customer. The
// outcome is the same whether or not the email belongs to one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != domain.RoleCustomer || !user.IsActive {
		s.logger.Debug("password reset ignored", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
		return nil
	}

	token, err := s.tokens.IssuePasswordReset(user)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	if err := s.notifier.SendPasswordReset(ctx, user, token); err != nil {
		return fmt.Errorf("failed to send reset token: %w", err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token. A token is
// spent once the password changes.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.Validate(token, auth.PurposePasswordReset)
	if err != nil {
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.GetByID(ctx, uuid.MustParse(claims.Subject))
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != domain.RoleCustomer || !user.IsActive {
		return ErrInvalidResetToken
	}
	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(auth.PasswordFingerprint(user.PasswordHash))) != 1 {
		return ErrInvalidResetToken
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password reset completed", zap.String("user_id", user.ID.String()))
	return nil
}
