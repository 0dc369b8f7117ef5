package httpx

import (
	"net/http"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/google/uuid"
)

// Principal returns the authenticated caller or nil.
func Principal(r *http.Request) *authz.Principal {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		return nil
	}
	return p
}

// PathUUID parses a path parameter as a uuid.
func PathUUID(params map[string]string, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, domain.Invalid(name, "must be a valid UUID")
	}
	return id, nil
}
