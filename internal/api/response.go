package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes v as the response body with the given status. A nil v
// writes only headers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the standard `{"error": "..."}` failure body.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
