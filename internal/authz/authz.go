package authz

import (
	"fmt"
	"strings"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/google/uuid"
)

// Principal is the identity resolved for the current call.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   user.Role
}

func (p *Principal) Is(role user.Role) bool { return p != nil && p.Role == role }

// Resource is the ownership shape every protected object exposes.
type Resource struct {
	OwnerEmail   string
	HandlerEmail string
}

func RequestResource(r *request.Request) Resource {
	return Resource{OwnerEmail: r.ClientEmail, HandlerEmail: r.NotaryEmail}
}

func RequireRole(p *Principal, roles ...user.Role) error {
	if p == nil {
		return domain.ErrUnauthenticated
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s not allowed", domain.ErrForbidden, p.Role)
}

func RequireAdmin(p *Principal) error { return RequireRole(p, user.RoleAdmin) }

func CanCreateRequest(p *Principal) error { return RequireRole(p, user.RoleClient) }

func CanAccessRequest(p *Principal, res Resource) error {
	if p == nil {
		return domain.ErrUnauthenticated
	}
	switch {
	case p.Role == user.RoleAdmin:
		return nil
	case sameEmail(p.Email, res.OwnerEmail):
		return nil
	case sameEmail(p.Email, res.HandlerEmail):
		return nil
	}
	return fmt.Errorf("%w: not owner or assigned notary", domain.ErrForbidden)
}

// CanHandleRequest allows the assigned notary or an admin to drive the request.
func CanHandleRequest(p *Principal, res Resource) error {
	if p == nil {
		return domain.ErrUnauthenticated
	}
	if p.Role == user.RoleAdmin || (p.Role == user.RoleNotary && sameEmail(p.Email, res.HandlerEmail)) {
		return nil
	}
	return fmt.Errorf("%w: only the assigned notary or an admin", domain.ErrForbidden)
}

func CanCancelRequest(p *Principal, res Resource, status request.Status) error {
	if p == nil {
		return domain.ErrUnauthenticated
	}
	if p.Role != user.RoleAdmin && !sameEmail(p.Email, res.OwnerEmail) {
		return fmt.Errorf("%w: only the owner or an admin can cancel", domain.ErrForbidden)
	}
	if status == request.StatusCompleted {
		return fmt.Errorf("%w: completed request cannot be cancelled", domain.ErrBadRequest)
	}
	return nil
}

func sameEmail(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}
