package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/NordCoder/enotary/internal/domain"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads the request body into dst. An empty body leaves dst untouched
// when optional is set.
func DecodeJSON(r *http.Request, dst any, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return domain.Invalid("body", "request body is required")
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if optional {
			return nil
		}
		return domain.Invalid("body", "request body is required")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Invalid("body", "request body is too large")
		}
		return domain.Invalid("body", "malformed JSON")
	}
}
