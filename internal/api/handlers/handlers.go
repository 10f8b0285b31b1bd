// Package handlers implements the HTTP boundary. Verification failures are
// reported with deliberately generic messages: responses never say whether a
// credential was expired, tampered with, or revoked, even though the service
// layer distinguishes those internally.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	msgInvalidToken  = "Invalid or expired token"
	msgInvalidAPIKey = "Invalid API key"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":   "Unauthorized",
		"message": msgInvalidToken,
	})
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ttlString renders a duration the way clients expect expiresIn: whole hours
// as "24h", everything else via the default formatting.
func ttlString(d time.Duration) string {
	if d == 0 {
		return "24h"
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
