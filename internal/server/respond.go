package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON serializes v with a JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps an error code to its HTTP status. Codes from lower
// components pass through unchanged - the gateway never reclassifies a
// failure, it only translates it to the wire.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := canvas.CodeOf(err)

	var status int
	switch code {
	case canvas.CodeUnauthorized, canvas.CodeInsufficientPaint:
		status = http.StatusForbidden
	case canvas.CodeNotFound:
		status = http.StatusNotFound
	case canvas.CodeInvalidArgument:
		status = http.StatusBadRequest
	case canvas.CodeRateLimited:
		status = http.StatusTooManyRequests
	case canvas.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case canvas.CodeDeadlineExceeded:
		status = http.StatusGatewayTimeout
	default:
		code = canvas.CodeStoreFailure
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}

	detail := ""
	var ce *canvas.Error
	if errors.As(err, &ce) {
		detail = ce.Message
	}

	writeJSON(w, status, errorBody{Error: string(code), Detail: detail})
}
