package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storyd/internal/orchestrator"
	"storyd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps err to its status and failure body and returns the
// status written.
func writeServiceError(w http.ResponseWriter, flow string, err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		writeJSONError(w, he.StatusCode(), he.Error())
		return he.StatusCode()
	}
	f := orchestrator.Classify(err)
	resp := types.ErrorResponse{
		Error:      f.Message,
		Code:       f.Status,
		Kind:       f.Kind,
		RetryAfter: f.RetryAfterSeconds(),
	}
	if resp.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
	}
	if f.Status == http.StatusTooManyRequests {
		IncrementRateLimited(f.Kind)
		// the UI stops its frame animation loop on this flag
		resp.DisableStopMotion = flow == flowFrame
	}
	writeJSON(w, f.Status, resp)
	return f.Status
}
