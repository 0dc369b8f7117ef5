package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/enotary/internal/domain/auth"
)

var _ auth.RevokedTokenRepo = (*RevokedTokenRepo)(nil)

type RevokedTokenRepo struct{ db *DB }

func NewRevokedTokenRepo(db *DB) *RevokedTokenRepo { return &RevokedTokenRepo{db: db} }

const (
	qRevokedAdd = `
INSERT INTO revoked_tokens (jti, revoked_at, expires_at)
VALUES ($1, NOW(), $2)
ON CONFLICT (jti) DO NOTHING;`

	qRevokedExists = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1);`
)

func (r *RevokedTokenRepo) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qRevokedAdd, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}
	return nil
}

func (r *RevokedTokenRepo) Exists(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var ok bool
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qRevokedExists, jti).Scan(&ok); err != nil {
		return false, fmt.Errorf("revoked lookup: %w", err)
	}
	return ok, nil
}
