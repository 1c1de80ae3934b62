package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthServiceConfig sets the login lockout policy
type AuthServiceConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// DefaultAuthServiceConfig locks an account for 15 minutes after 5 failures
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{MaxLoginAttempts: 5, LockDuration: 15 * time.Minute}
}

var (
	errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	errAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked, try again later or ask an administrator")
	errAccountDeactivated = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	errUserNotFound       = shared.NewDomainError("USER_NOT_FOUND", "User not found")
	errTokenIssue         = shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
)

// AuthService signs users in and out and rotates their tokens
type AuthService struct {
	users    identity.UserRepository
	tokens   *auth.JWTService
	verifier *auth.Verifier
	policy   AuthServiceConfig
	logger   *zap.Logger
}

// NewAuthService creates an AuthService. verifier and logger may be nil.
func NewAuthService(
	users identity.UserRepository,
	tokens *auth.JWTService,
	verifier *auth.Verifier,
	policy AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, verifier: verifier, policy: policy, logger: logger.Named("auth")}
}

// Login checks the credentials and issues a token pair. Every failed
// password counts towards the lockout.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := s.logger.With(zap.String("username", input.Username), zap.String("ip", input.IP))

	user, err := s.authenticate(ctx, input, log)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		log.Error("Failed to generate token pair", zap.Error(err))
		return nil, errTokenIssue
	}

	user.RecordLoginSuccess()
	if err := s.users.Save(ctx, user); err != nil {
		log.Error("Failed to record successful login", zap.Error(err))
	}
	log.Info("User logged in", zap.Stringer("user_id", user.ID), zap.String("role", user.Role.String()))

	return &LoginResult{TokenPair: *pair, User: toUserInfo(user)}, nil
}

func (s *AuthService) authenticate(ctx context.Context, input LoginInput, log *zap.Logger) (*identity.User, error) {
	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		log.Warn("Login for unknown user")
		return nil, errInvalidCredentials
	}

	switch {
	case user.IsLocked():
		log.Warn("Login for locked account")
		return nil, errAccountLocked
	case !user.CanLogin():
		log.Warn("Login for deactivated account")
		return nil, errAccountDeactivated
	case user.VerifyPassword(input.Password):
		return user, nil
	}

	locked := user.RecordLoginFailure(s.policy.MaxLoginAttempts, s.policy.LockDuration)
	if err := s.users.Save(ctx, user); err != nil {
		log.Error("Failed to record login failure", zap.Error(err))
	}
	if locked {
		log.Warn("Account locked", zap.Int("attempts", s.policy.MaxLoginAttempts))
		return nil, errAccountLocked
	}
	log.Warn("Wrong password", zap.Int("failed_attempts", user.FailedAttempts))
	return nil, errInvalidCredentials
}

// RefreshToken issues a new token pair. The role is re-read from the user so
// a role change takes effect on the next refresh.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Debug("Rejected refresh token", zap.Error(err))
		return nil, tokenError(err)
	}
	actor, err := claims.Actor()
	if err != nil {
		return nil, tokenError(err)
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, errUserNotFound
	}
	if !user.CanLogin() {
		s.logger.Warn("Refresh for inactive user", zap.Stringer("user_id", user.ID))
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	pair, err := s.tokens.RefreshTokenPair(input.RefreshToken, user.Role)
	if err != nil {
		return nil, tokenError(err)
	}
	return pair, nil
}

// Logout revokes the presented access token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.Claims == nil {
		return shared.ErrUnauthorized
	}
	if s.verifier != nil {
		if err := s.verifier.Revoke(ctx, input.Claims); err != nil {
			s.logger.Error("Failed to revoke token", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to log out")
		}
	}
	s.logger.Info("User logged out", zap.String("user_id", input.Claims.UserID))
	return nil
}

// GetCurrentUser retrieves the caller's profile and effective permissions
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, errUserNotFound
	}
	info := toUserInfo(user)
	return &info, nil
}

// ChangePassword changes the caller's own password
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return errUserNotFound
	}
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	s.logger.Info("Password changed", zap.Stringer("user_id", input.UserID))
	return nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
}
