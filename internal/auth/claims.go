package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the JWT payload. Subject is the account email.
type Claims struct {
	Role   string `json:"role,omitempty"`
	UserID string `json:"userId,omitempty"`
	Kind   Kind   `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) JTI() string { return c.ID }

func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued is a freshly signed token plus the claims a caller needs to persist it.
type Issued struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
