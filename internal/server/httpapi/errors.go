package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/afterword/vaultword/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the service error taxonomy onto HTTP statuses. An
// authentication failure is reported as a generic 400 so the response
// does not distinguish a wrong key from corrupted ciphertext.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, common.ErrFormat):
		status, message = http.StatusBadRequest, "malformed input"
	case errors.Is(err, common.ErrAuthentication):
		status, message = http.StatusBadRequest, "cannot process"
	case errors.Is(err, common.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrUpstreamTimeout):
		status, message = http.StatusGatewayTimeout, "upstream timeout"
	case errors.Is(err, common.ErrUpstream):
		status, message = http.StatusBadGateway, "upstream failure"
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
