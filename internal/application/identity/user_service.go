package identity

import (
	"context"
	"strings"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserRevoker invalidates every token issued to a user so far
type UserRevoker interface {
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
}

// UserService manages staff users. Admin only.
type UserService struct {
	userRepo  identity.UserRepository
	txManager shared.TransactionManager
	events    shared.EventRecorder
	revoker   UserRevoker
	revokeTTL time.Duration
	logger    *zap.Logger
}

// NewUserService creates a new UserService. revoker may be nil; revokeTTL
// should cover the longest-lived access token.
func NewUserService(
	userRepo identity.UserRepository,
	txManager shared.TransactionManager,
	events shared.EventRecorder,
	revoker UserRevoker,
	revokeTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:  userRepo,
		txManager: txManager,
		events:    events,
		revoker:   revoker,
		revokeTTL: revokeTTL,
		logger:    logger,
	}
}

// Create creates a new user
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("USERNAME_EXISTS", "Username already exists")
	}
	if req.Email != "" {
		exists, err := s.userRepo.ExistsByEmail(ctx, strings.ToLower(req.Email))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already exists")
		}
	}

	user, err := identity.NewUser(req.Username, req.Password, req.FullName, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}
	if req.Email != "" {
		if err := user.SetEmail(req.Email); err != nil {
			return nil, err
		}
	}
	if req.Phone != "" {
		if err := user.UpdateProfile(user.FullName, req.Phone); err != nil {
			return nil, err
		}
	}
	if actor, ok := identity.ActorFromContext(ctx); ok {
		user.SetCreatedBy(actor.UserID)
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	response := ToUserResponse(user)
	return &response, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToUserResponse(user)
	return &response, nil
}

// List retrieves users with filtering and pagination
func (s *UserService) List(ctx context.Context, filter UserListFilter) (shared.Paginated[UserResponse], error) {
	normalized := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize("username")
	domainFilter := identity.UserFilter{
		Keyword:  filter.Keyword,
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
	}
	if filter.Role != "" {
		role := identity.Role(filter.Role)
		domainFilter.Role = &role
	}
	if filter.Status != "" {
		status := identity.UserStatus(filter.Status)
		domainFilter.Status = &status
	}

	users, total, err := s.userRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[UserResponse]{}, err
	}
	items := make([]UserResponse, len(users))
	for i, u := range users {
		items[i] = ToUserResponse(u)
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Update changes profile fields
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil || req.Phone != nil {
		fullName, phone := user.FullName, user.Phone
		if req.FullName != nil {
			fullName = *req.FullName
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if err := user.UpdateProfile(fullName, phone); err != nil {
			return nil, err
		}
	}
	if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
		if *req.Email != "" {
			exists, err := s.userRepo.ExistsByEmail(ctx, strings.ToLower(*req.Email))
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already exists")
			}
		}
		if err := user.SetEmail(*req.Email); err != nil {
			return nil, err
		}
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	response := ToUserResponse(user)
	return &response, nil
}

// ChangeRole moves the user to another role and revokes their current tokens
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardSelf(ctx, id, "change your own role"); err != nil {
		return nil, err
	}
	if err := user.ChangeRole(identity.Role(req.Role)); err != nil {
		return nil, err
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.revoke(ctx, user)
	response := ToUserResponse(user)
	return &response, nil
}

// ResetPassword sets a new password and revokes the user's tokens
func (s *UserService) ResetPassword(ctx context.Context, id uuid.UUID, req ResetPasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}
	s.revoke(ctx, user)
	return nil
}

// Activate re-enables a deactivated or locked user
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Activate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	response := ToUserResponse(user)
	return &response, nil
}

// Deactivate disables the user and revokes their tokens
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	if err := s.guardSelf(ctx, id, "deactivate yourself"); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.revoke(ctx, user)
	response := ToUserResponse(user)
	return &response, nil
}

// Delete removes a user. Users referenced by orders or routes are kept (REFERENCED).
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.guardSelf(ctx, id, "delete yourself"); err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.revoke(ctx, user)
	return nil
}

func (s *UserService) save(ctx context.Context, user *identity.User) error {
	return s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Save(ctx, user); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, user)
	})
}

func (s *UserService) guardSelf(ctx context.Context, id uuid.UUID, what string) error {
	if actor, ok := identity.ActorFromContext(ctx); ok && actor.UserID == id {
		return shared.NewDomainError("CANNOT_MODIFY_SELF", "You cannot "+what)
	}
	return nil
}

func (s *UserService) revoke(ctx context.Context, user *identity.User) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeUser(ctx, user.ID.String(), s.revokeTTL); err != nil {
		s.logger.Error("failed to revoke user tokens", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
