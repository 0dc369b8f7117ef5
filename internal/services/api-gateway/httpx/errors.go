package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/obs"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

type ErrorBody struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

const (
	msgInvalidCredentials = "Invalid email or password."
	msgAccountDisabled    = "Account is disabled. Contact support."
	msgAccountLocked      = "Account is locked. Try again later or contact support."
	msgCredentialsExpired = "Credentials expired. Reset your password."
	msgSessionInvalid     = "Session expired or revoked. Please log in again."
	msgInvalidToken       = "Invalid or expired token."
	msgUnauthenticated    = "Authentication required."
	msgForbidden          = "Access denied."
	msgConflict           = "Resource already exists."
	msgNotFound           = "Resource not found."
	msgBadRequest         = "Invalid input data."
	msgInternal           = "Internal server error."
)

// Classify maps an error to its status and public message.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, msgAccountDisabled
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, msgAccountLocked
	case errors.Is(err, domain.ErrCredentialsExpired):
		return http.StatusUnauthorized, msgCredentialsExpired
	case errors.Is(err, domain.ErrSessionExpiredOrRevoked):
		return http.StatusUnauthorized, msgSessionInvalid
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, msgInvalidToken
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, msgConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, msgBadRequest
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// WriteError renders err as the JSON error body. Internal errors are logged
// and never echoed to the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, msg := Classify(err)
	body := ErrorBody{Status: status, Message: msg}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Errors = ve.Fields
	} else if status != http.StatusInternalServerError {
		body.Message = publicDetail(err, msg)
	}

	if status == http.StatusInternalServerError && log != nil {
		obs.WithTrace(r.Context(), log).Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	WriteJSON(w, status, body)
}

func publicDetail(err error, fallback string) string {
	var d *domain.DetailedError
	if errors.As(err, &d) && d.Message != "" {
		return d.Message
	}
	return fallback
}

// RoutingErrorHandler renders mux-level 404/405 in the same JSON shape.
func RoutingErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	msg := http.StatusText(status)
	switch status {
	case http.StatusNotFound:
		msg = msgNotFound
	case http.StatusMethodNotAllowed:
		msg = "Method not allowed."
	}
	WriteJSON(w, status, ErrorBody{Status: status, Message: msg})
}
