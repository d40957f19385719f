package http

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, message, details string) {
	respondJSON(w, code, GenericErrorResponse{Error: message, Details: details})
}

// respondOK is the plain acknowledgement the messaging provider expects.
func respondOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
