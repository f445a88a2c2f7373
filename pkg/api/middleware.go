package api

import (
	"encoding/json"
	"net/http"

	"github.com/ndegiovanni/hywire/pkg/wire"
)

// apiKeyMiddleware guards the inspection routes with an X-API-Key check and
// records every verdict on the server's auth metrics.
func apiKeyMiddleware(server *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch key := r.Header.Get("X-API-Key"); {
			case key == "":
				server.metrics.RecordAuth(authMissing)
				sendError(w, "missing X-API-Key header", http.StatusUnauthorized)
			case key != server.config.APIKey:
				server.metrics.RecordAuth(authRejected)
				sendError(w, "invalid API key", http.StatusUnauthorized)
			default:
				server.metrics.RecordAuth(authAccepted)
				next.ServeHTTP(w, r)
			}
		})
	}
}

// writeJSON writes one response envelope.
func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// sendSuccess wraps data in the success envelope.
func sendSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendError writes the failure envelope for errors with no wire
// classification.
func sendError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, APIResponse{Success: false, Error: message})
}

// sendWireError writes the failure envelope and classifies err with the wire
// outcome taxonomy, so callers can tell a short buffer from corruption
// without parsing the message text.
func sendWireError(w http.ResponseWriter, message string, err error, status int) {
	resp := APIResponse{Success: false, Error: message}
	switch {
	case wire.IsTruncated(err):
		resp.Reason = outcomeTruncated
	case wire.IsMalformed(err):
		resp.Reason = outcomeMalformed
	}
	writeJSON(w, status, resp)
}
