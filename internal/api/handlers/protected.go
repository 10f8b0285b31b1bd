package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/authgate/authgate/internal/token"
)

// ProtectedHandler serves the endpoints that require a live session token
// and re-validate the user against current store state.
type ProtectedHandler struct {
	tokens *token.Service
}

func NewProtectedHandler(tokens *token.Service) *ProtectedHandler {
	return &ProtectedHandler{tokens: tokens}
}

func (h *ProtectedHandler) Protected(w http.ResponseWriter, r *http.Request) {
	user, err := h.tokens.VerifyAndGetUser(r.Context(), r)
	if err != nil {
		unauthorized(w)
		return
	}

	resp := map[string]any{
		"message":   "This is protected data",
		"user":      user,
		"timestamp": nowISO(),
	}
	if r.Method == http.MethodPost {
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			resp["receivedData"] = body
		}
		resp["message"] = "Protected POST endpoint"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProtectedHandler) User(w http.ResponseWriter, r *http.Request) {
	user, err := h.tokens.VerifyAndGetUser(r.Context(), r)
	if err != nil {
		unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"user":      user,
		"timestamp": nowISO(),
	})
}
