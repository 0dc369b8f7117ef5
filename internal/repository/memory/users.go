package memory

import (
	"context"
	"sync"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/google/uuid"
)

var _ user.Repo = (*UserRepo)(nil)

// UserRepo keeps the same uniqueness rules as the users table.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]user.User
	byEmail map[string]uuid.UUID
	byPhone map[string]uuid.UUID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[uuid.UUID]user.User),
		byEmail: make(map[string]uuid.UUID),
		byPhone: make(map[string]uuid.UUID),
	}
}

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byPhone[u.Phone]; ok && u.Phone != "" {
		return domain.ErrConflict
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	if u.Phone != "" {
		r.byPhone[u.Phone] = u.ID
	}
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *UserRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPhone[phone]
	return ok, nil
}

func (r *UserRepo) ExistsByRole(_ context.Context, role user.Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if id, taken := r.byEmail[u.Email]; taken && id != u.ID {
		return domain.ErrConflict
	}
	if id, taken := r.byPhone[u.Phone]; taken && id != u.ID && u.Phone != "" {
		return domain.ErrConflict
	}
	delete(r.byEmail, cur.Email)
	if r.byPhone[cur.Phone] == u.ID {
		delete(r.byPhone, cur.Phone)
	}
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	if u.Phone != "" {
		r.byPhone[u.Phone] = u.ID
	}
	return nil
}
