package user

import (
	"context"
	"net/http"
	"time"

	"github.com/NordCoder/enotary/internal/authz"
	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/user"
	"github.com/NordCoder/enotary/internal/services/api-gateway/httpx"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type Service interface {
	RegisterClient(ctx context.Context, in SignUp) (*user.User, error)
	CreateNotary(ctx context.Context, p *authz.Principal, in SignUp) (*user.User, error)
	GetProfile(ctx context.Context, p *authz.Principal) (*user.User, error)
	UpdateProfile(ctx context.Context, p *authz.Principal, in ProfileInput) (*user.User, error)
}

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.With(zap.String("component", "user.http"))}
}

func (h *Handler) Register(mux *runtime.ServeMux) error {
	for _, rt := range []struct {
		method, path string
		fn           runtime.HandlerFunc
	}{
		{http.MethodPost, "/api/users", h.register},
		{http.MethodPost, "/api/admin/notaries", h.createNotary},
		{http.MethodGet, "/api/profile", h.getProfile},
		{http.MethodPut, "/api/profile", h.updateProfile},
	} {
		if err := mux.HandlePath(rt.method, rt.path, rt.fn); err != nil {
			return err
		}
	}
	return nil
}

type userResponse struct {
	UserID             uuid.UUID               `json:"userId"`
	Email              string                  `json:"email"`
	PhoneNumber        string                  `json:"phoneNumber"`
	Role               user.Role               `json:"role"`
	VerificationStatus user.VerificationStatus `json:"verificationStatus"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		UserID:             u.ID,
		Email:              u.Email,
		PhoneNumber:        u.Phone,
		Role:               u.Role,
		VerificationStatus: u.Status,
	}
}

type profileResponse struct {
	userResponse
	FullName    string `json:"fullName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Address     string `json:"address,omitempty"`
	NationalID  string `json:"nationalId,omitempty"`
}

func toProfileResponse(u *user.User) profileResponse {
	out := profileResponse{
		userResponse: toUserResponse(u),
		FullName:     u.Profile.FullName,
		Address:      u.Profile.Address,
		NationalID:   u.Profile.NationalID,
	}
	if u.Profile.DateOfBirth != nil {
		out.DateOfBirth = u.Profile.DateOfBirth.Format(dateLayout)
	}
	return out
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in SignUp
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	created, err := h.svc.RegisterClient(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(created))
}

func (h *Handler) createNotary(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p := httpx.Principal(r)
	if p == nil {
		httpx.WriteError(w, r, h.log, domain.ErrUnauthenticated)
		return
	}
	var in SignUp
	if err := httpx.DecodeJSON(r, &in, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	created, err := h.svc.CreateNotary(r.Context(), p, in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(created))
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	u, err := h.svc.GetProfile(r.Context(), httpx.Principal(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfileResponse(u))
}

type profileRequest struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth"`
	Address     string `json:"address"`
	NationalID  string `json:"nationalId"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	p := httpx.Principal(r)
	if p == nil {
		httpx.WriteError(w, r, h.log, domain.ErrUnauthenticated)
		return
	}
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	in := ProfileInput{FullName: req.FullName, Address: req.Address, NationalID: req.NationalID}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			httpx.WriteError(w, r, h.log, domain.Invalid("dateOfBirth", "must be formatted as YYYY-MM-DD"))
			return
		}
		in.DateOfBirth = &dob
	}
	u, err := h.svc.UpdateProfile(r.Context(), p, in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfileResponse(u))
}
