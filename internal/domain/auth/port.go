package auth

import (
	"context"
	"time"
)

type RefreshTokenRepo interface {
	Create(ctx context.Context, t *RefreshToken) error
	FindByJTI(ctx context.Context, jti string) (*RefreshToken, error)
	FindByToken(ctx context.Context, raw string) (*RefreshToken, error)
	ListByEmail(ctx context.Context, email string) ([]*RefreshToken, error)
	// MarkRevoked flips revoked to true only if it is still false and reports
	// whether this call did it.
	MarkRevoked(ctx context.Context, jti string) (bool, error)
}

type RevokedTokenRepo interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Exists(ctx context.Context, jti string) (bool, error)
}

type EventSink interface {
	Record(ctx context.Context, ev Event) error
}
