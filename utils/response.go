package utils

import (
	"encoding/json"
	"net/http"
)

// M is shorthand for ad hoc JSON payloads.
type M map[string]any

// RespondWithError sends the uniform failure shape {"success": false, "error": msg}.
func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"success": false, "error": msg})
}

// RespondWithSuccess merges payload into {"success": true, ...}.
func RespondWithSuccess(w http.ResponseWriter, code int, payload M) {
	body := M{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	RespondWithJSON(w, code, body)
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
