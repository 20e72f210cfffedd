package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/railpulse-portal/internal/client"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// StatusForError maps a backend error onto the status the portal reports.
// Backend 4xx replies pass through; everything else is a bad gateway.
func StatusForError(err error) int {
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) && reqErr.ClientError() {
		return reqErr.StatusCode
	}
	var cfgErr *client.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// ParseBool reads "1", "true", "yes" and "on" as true.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true
	}
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b
}
