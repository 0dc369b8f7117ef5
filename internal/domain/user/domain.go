package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient Role = "CLIENT"
	RoleNotary Role = "NOTARY"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleNotary, RoleAdmin:
		return true
	}
	return false
}

type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusVerified VerificationStatus = "VERIFIED"
)

type Profile struct {
	FullName    string     `json:"fullName,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Address     string     `json:"address,omitempty"`
	NationalID  string     `json:"nationalId,omitempty"`
}

type User struct {
	ID           uuid.UUID
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Status       VerificationStatus
	Profile      Profile

	Disabled          bool
	LockedUntil       *time.Time
	PasswordExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

func (u *User) CredentialsExpired(now time.Time) bool {
	return u.PasswordExpiresAt != nil && !now.Before(*u.PasswordExpiresAt)
}
