package user

import (
	"context"

	"github.com/google/uuid"
)

// Repo returns errors matching domain.ErrNotFound and domain.ErrConflict.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByRole(ctx context.Context, role Role) (bool, error)
	Update(ctx context.Context, u *User) error
}
