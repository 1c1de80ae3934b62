package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository stores users. Usernames are kept lower case, so
// FindByUsername and ExistsByUsername expect an already normalized name.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	// FindAll returns one page and the total number of matches
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserFilter narrows a user listing. Keyword matches username, full name or email.
type UserFilter struct {
	Keyword  string
	Role     *Role
	Status   *UserStatus
	Page     int
	PageSize int
}
