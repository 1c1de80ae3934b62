package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/distribuidora/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

type UserStatus string

// A locked user failed too many logins and is let back in when LockedUntil
// passes; a deactivated one waits for an admin.
const (
	UserStatusActive      UserStatus = "active"
	UserStatusLocked      UserStatus = "locked"
	UserStatusDeactivated UserStatus = "deactivated"
)

const (
	bcryptCost = 12
	// bcrypt only reads the first 72 bytes
	maxPasswordLen = 72
	minPasswordLen = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,100}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	errInvalidRole    = shared.NewDomainError("INVALID_ROLE", "Role must be one of admin, sales_rep, driver, warehouse")
	errEmptyFullName  = shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	errInvalidEmail   = shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	errWrongPassword  = shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	errAlreadyActive  = shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	errAlreadyDisable = shared.NewDomainError("ALREADY_DEACTIVATED", "User is already deactivated")
)

// User is a staff account: admin, sales rep, driver or warehouse operator.
// Usernames and emails are stored lower case.
type User struct {
	shared.BaseAggregateRoot
	Username       string
	Email          string
	FullName       string
	Phone          string
	PasswordHash   string
	Role           Role
	Status         UserStatus
	LastLoginAt    *time.Time
	FailedAttempts int
	LockedUntil    *time.Time
}

func NewUser(username, password, fullName string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, shared.NewDomainError("INVALID_USERNAME",
			"Username must be 3-100 letters, digits, dots, underscores or hyphens")
	}
	if !role.IsValid() {
		return nil, errInvalidRole
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, errEmptyFullName
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          strings.ToLower(username),
		FullName:          fullName,
		PasswordHash:      hash,
		Role:              role,
		Status:            UserStatusActive,
	}
	u.AddDomainEvent(NewUserCreatedEvent(u))
	return u, nil
}

// SetEmail stores email lower cased; an empty email clears it
func (u *User) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" && (len(email) > 200 || !emailPattern.MatchString(email)) {
		return errInvalidEmail
	}
	u.Email = email
	u.IncrementVersion()
	return nil
}

func (u *User) UpdateProfile(fullName, phone string) error {
	fullName, phone = strings.TrimSpace(fullName), strings.TrimSpace(phone)
	if fullName == "" {
		return errEmptyFullName
	}
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	u.FullName, u.Phone = fullName, phone
	u.IncrementVersion()
	return nil
}

// ChangeRole raises UserRoleChanged; setting the current role is a no-op
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return errInvalidRole
	}
	if role == u.Role {
		return nil
	}
	previous := u.Role
	u.Role = role
	u.IncrementVersion()
	u.AddDomainEvent(NewUserRoleChangedEvent(u, previous))
	return nil
}

// SetPassword is the admin reset; ChangePassword is the self-service path
func (u *User) SetPassword(password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.IncrementVersion()
	return nil
}

func (u *User) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return errWrongPassword
	}
	return u.SetPassword(next)
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Activate also lifts a login lock
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return errAlreadyActive
	}
	u.Status = UserStatusActive
	u.clearLock()
	u.IncrementVersion()
	return nil
}

func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return errAlreadyDisable
	}
	u.Status = UserStatusDeactivated
	u.IncrementVersion()
	return nil
}

// RecordLoginSuccess stamps LastLoginAt and clears a lapsed lock. Login
// bookkeeping does not bump the version.
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.clearLock()
	if u.Status == UserStatusLocked {
		u.Status = UserStatusActive
	}
	u.Touch()
}

// RecordLoginFailure reports whether this failure locked the account.
// maxAttempts <= 0 disables locking.
func (u *User) RecordLoginFailure(maxAttempts int, lockFor time.Duration) bool {
	u.FailedAttempts++
	u.Touch()
	if maxAttempts <= 0 || u.FailedAttempts < maxAttempts {
		return false
	}
	until := time.Now().Add(lockFor)
	u.Status = UserStatusLocked
	u.LockedUntil = &until
	return true
}

// IsLocked is false once LockedUntil has passed, even before the next
// successful login flips the status back
func (u *User) IsLocked() bool {
	return u.Status == UserStatusLocked && (u.LockedUntil == nil || time.Now().Before(*u.LockedUntil))
}

func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive || (u.Status == UserStatusLocked && !u.IsLocked())
}

func (u *User) clearLock() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
}

// hashPassword enforces the password policy: 8 to 72 bytes with at least one
// letter and one digit
func hashPassword(password string) (string, error) {
	switch {
	case len(password) < minPasswordLen || len(password) > maxPasswordLen:
		return "", shared.NewDomainError("INVALID_PASSWORD",
			fmt.Sprintf("Password must be %d to %d characters", minPasswordLen, maxPasswordLen))
	case !strings.ContainsFunc(password, unicode.IsLetter) || !strings.ContainsFunc(password, unicode.IsDigit):
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
