package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/authgate/authgate/internal/apikey"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/token"
)

type APIKeyHandler struct {
	keys   *apikey.Service
	tokens *token.Service
}

func NewAPIKeyHandler(keys *apikey.Service, tokens *token.Service) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, tokens: tokens}
}

// List returns the caller's keys in masked form: only the first 12 and last
// 4 characters of each key are shown.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := h.tokens.VerifyAndGetUser(r.Context(), r)
	if err != nil {
		unauthorized(w)
		return
	}

	keys, err := h.keys.ListForUser(r.Context(), user.ID)
	if err != nil {
		slog.Error("list api keys failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	masked := make([]*models.MaskedAPIKey, 0, len(keys))
	for _, k := range keys {
		masked = append(masked, k.Masked())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"apiKeys": masked,
	})
}

type createKeyRequest struct {
	KeyName   string `json:"key_name"`
	ExpiresAt string `json:"expires_at"`
}

// Create issues a new key. The response is the only place the plaintext key
// ever appears in full.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := h.tokens.VerifyAndGetUser(r.Context(), r)
	if err != nil {
		unauthorized(w)
		return
	}

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expires_at, expected RFC 3339"})
			return
		}
		expiresAt = &t
	}

	rec, err := h.keys.Create(r.Context(), user.ID, req.KeyName, expiresAt)
	if err != nil {
		slog.Error("create api key failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "API key created successfully",
		"apiKey": map[string]any{
			"id":         rec.ID,
			"key_name":   rec.KeyName,
			"api_key":    rec.APIKey,
			"created_at": rec.CreatedAt,
			"expires_at": rec.ExpiresAt,
		},
		"warning": "Save this API key now. You will not be able to see it again.",
	})
}

// Delete removes or deactivates a key depending on ?action=. A missing key
// and a key owned by someone else both map to 404.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.tokens.VerifyAndGetUser(r.Context(), r)
	if err != nil {
		unauthorized(w)
		return
	}

	idParam := r.URL.Query().Get("id")
	if idParam == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "API key ID is required"})
		return
	}
	id, err := uuid.Parse(idParam)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid API key ID"})
		return
	}

	action := r.URL.Query().Get("action")
	var ok bool
	if action == "deactivate" {
		ok, err = h.keys.Deactivate(r.Context(), id, user.ID)
	} else {
		action = "delete"
		ok, err = h.keys.Delete(r.Context(), id, user.ID)
	}
	if err != nil {
		slog.Error("api key mutation failed", "action", action, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "API key not found or access denied"})
		return
	}

	msg := "API key deleted successfully"
	if action == "deactivate" {
		msg = "API key deactivated successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
	})
}

// Test verifies the presented API key and reports the owning user. Failures
// all surface the same generic message.
func (h *APIKeyHandler) Test(w http.ResponseWriter, r *http.Request) {
	user, err := h.keys.VerifyFromRequest(r.Context(), r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": msgInvalidAPIKey,
		})
		return
	}

	resp := map[string]any{
		"valid":     true,
		"message":   "API key is valid",
		"user":      user,
		"timestamp": nowISO(),
	}
	if r.Method == http.MethodPost {
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			resp["receivedData"] = body
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
