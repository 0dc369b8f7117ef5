package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ auth.RefreshTokenRepo = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTCreate = `
INSERT INTO refresh_tokens (id, jti, email, token, expires_at, revoked, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6);
`
	qRTByJTI = `
SELECT id, jti, email, token, expires_at, revoked, created_at
FROM refresh_tokens
WHERE jti = $1;
`
	qRTByToken = `
SELECT id, jti, email, token, expires_at, revoked, created_at
FROM refresh_tokens
WHERE token = $1;
`
	qRTByEmail = `
SELECT id, jti, email, token, expires_at, revoked, created_at
FROM refresh_tokens
WHERE email = $1
ORDER BY created_at;
`
	qRTRevoke = `
UPDATE refresh_tokens SET revoked = TRUE WHERE jti = $1 AND revoked = FALSE;
`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *auth.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.execQueryer(ctx).Exec(ctx, qRTCreate, t.ID, t.JTI, t.Email, t.Token, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert refresh: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) FindByJTI(ctx context.Context, jti string) (*auth.RefreshToken, error) {
	return r.findOne(ctx, qRTByJTI, jti)
}

func (r *RefreshTokenRepo) FindByToken(ctx context.Context, raw string) (*auth.RefreshToken, error) {
	return r.findOne(ctx, qRTByToken, raw)
}

func (r *RefreshTokenRepo) findOne(ctx context.Context, q, arg string) (*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var t auth.RefreshToken
	err := r.db.execQueryer(ctx).QueryRow(ctx, q, arg).
		Scan(&t.ID, &t.JTI, &t.Email, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find refresh: %w", err)
	}
	return &t, nil
}

func (r *RefreshTokenRepo) ListByEmail(ctx context.Context, email string) ([]*auth.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qRTByEmail, email)
	if err != nil {
		return nil, fmt.Errorf("list refresh: %w", err)
	}
	defer rows.Close()

	var out []*auth.RefreshToken
	for rows.Next() {
		var t auth.RefreshToken
		if err := rows.Scan(&t.ID, &t.JTI, &t.Email, &t.Token, &t.ExpiresAt, &t.Revoked, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan refresh: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *RefreshTokenRepo) MarkRevoked(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qRTRevoke, jti)
	if err != nil {
		return false, fmt.Errorf("revoke refresh: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
