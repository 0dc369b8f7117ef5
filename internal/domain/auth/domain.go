package auth

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record of an issued refresh token.
type RefreshToken struct {
	ID        uuid.UUID
	JTI       string
	Email     string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// RevokedToken is a denylisted access token id.
type RevokedToken struct {
	JTI       string
	RevokedAt time.Time
	ExpiresAt time.Time
}

type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventRefreshRotated EventType = "refresh_rotated"
	EventRefreshReused  EventType = "refresh_reused"
	EventLogout         EventType = "logout"
	EventRevokedAll     EventType = "revoked_all"
)

// Event is a security-relevant state change, relayed to the audit topic.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   EventType `json:"type"`
	Email  string    `json:"email"`
	JTI    string    `json:"jti,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Count  int       `json:"count,omitempty"`
	At     time.Time `json:"at"`
}
