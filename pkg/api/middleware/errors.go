package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the API's error envelope. Middleware cannot reach the
// api package's helpers without an import cycle.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "msg": msg})
}
