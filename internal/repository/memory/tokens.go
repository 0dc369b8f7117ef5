package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/google/uuid"
)

var (
	_ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)
	_ auth.RevokedTokenRepo = (*RevokedTokenRepo)(nil)
)

type RefreshTokenRepo struct {
	mu      sync.Mutex
	byJTI   map[string]*auth.RefreshToken
	byToken map[string]string
}

func NewRefreshTokenRepo() *RefreshTokenRepo {
	return &RefreshTokenRepo{
		byJTI:   make(map[string]*auth.RefreshToken),
		byToken: make(map[string]string),
	}
}

func (r *RefreshTokenRepo) Create(_ context.Context, t *auth.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byJTI[t.JTI]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byToken[t.Token]; ok {
		return domain.ErrConflict
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	r.byJTI[t.JTI] = &cp
	r.byToken[t.Token] = t.JTI
	return nil
}

func (r *RefreshTokenRepo) FindByJTI(_ context.Context, jti string) (*auth.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byJTI[jti]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *RefreshTokenRepo) FindByToken(ctx context.Context, raw string) (*auth.RefreshToken, error) {
	r.mu.Lock()
	jti, ok := r.byToken[raw]
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.FindByJTI(ctx, jti)
}

func (r *RefreshTokenRepo) ListByEmail(_ context.Context, email string) ([]*auth.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*auth.RefreshToken
	for _, t := range r.byJTI {
		if t.Email == email {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *RefreshTokenRepo) MarkRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byJTI[jti]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

type RevokedTokenRepo struct {
	mu   sync.RWMutex
	jtis map[string]auth.RevokedToken
	now  func() time.Time
}

func NewRevokedTokenRepo() *RevokedTokenRepo {
	return &RevokedTokenRepo{
		jtis: make(map[string]auth.RevokedToken),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *RevokedTokenRepo) Add(_ context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jtis[jti]; ok {
		return nil
	}
	r.jtis[jti] = auth.RevokedToken{JTI: jti, RevokedAt: r.now(), ExpiresAt: expiresAt}
	return nil
}

func (r *RevokedTokenRepo) Exists(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jtis[jti]
	return ok, nil
}
