package auth

import (
	"context"
	"net/http"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/services/api-gateway/httpx"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, raw string) (*RefreshResult, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

type Handler struct {
	svc     Service
	limiter *httpx.IPLimiter
	log     *zap.Logger
}

func NewHandler(svc Service, limiter *httpx.IPLimiter, log *zap.Logger) *Handler {
	return &Handler{svc: svc, limiter: limiter, log: log.With(zap.String("component", "auth.http"))}
}

func (h *Handler) Register(mux *runtime.ServeMux) error {
	login := h.login
	if h.limiter != nil {
		login = h.limiter.LimitRoute(login)
	}
	for _, rt := range []struct {
		method, path string
		fn           runtime.HandlerFunc
	}{
		{http.MethodPost, "/api/auth/login", login},
		{http.MethodPost, "/api/auth/refresh", h.refresh},
		{http.MethodPost, "/api/auth/logout", h.logout},
	} {
		if err := mux.HandlePath(rt.method, rt.path, rt.fn); err != nil {
			return err
		}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var ve *domain.ValidationError
	if NormalizeEmail(req.Email) == "" {
		ve = ve.Add("email", "must not be blank")
	}
	if req.Password == "" {
		ve = ve.Add("password", "must not be blank")
	}
	if err := ve.Err(); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, r, h.log, domain.Invalid("refreshToken", "must not be blank"))
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req, true); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.svc.Logout(r.Context(), httpx.BearerToken(r), req.RefreshToken); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
