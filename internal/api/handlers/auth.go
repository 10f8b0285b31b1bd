package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/password"
	"github.com/authgate/authgate/internal/store"
	"github.com/authgate/authgate/internal/token"
)

type AuthHandler struct {
	tokens *token.Service
	users  store.Store
	ttl    time.Duration
}

func NewAuthHandler(tokens *token.Service, users store.Store, ttl time.Duration) *AuthHandler {
	return &AuthHandler{tokens: tokens, users: users, ttl: ttl}
}

// sessionUser is the identity shape embedded in register/login/verify
// responses.
type sessionUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required"})
		return
	}
	if v := password.ValidateUsername(req.Username); !v.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": v.Err})
		return
	}
	if req.Email != "" {
		if v := password.ValidateEmail(req.Email); !v.Valid {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": v.Err})
			return
		}
	}
	if v := password.ValidatePassword(req.Password); !v.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": v.Err})
		return
	}

	ctx := r.Context()
	if _, err := h.users.GetUserByUsername(ctx, req.Username); err == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Username already exists"})
		return
	}
	if req.Email != "" {
		if _, err := h.users.GetUserByEmail(ctx, req.Email); err == nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already exists"})
			return
		}
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Registration failed"})
		return
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	user, err := h.users.CreateUser(ctx, &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Username or email already exists"})
			return
		}
		slog.Error("create user failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Registration failed"})
		return
	}

	signed, err := h.tokens.Generate(token.Input{
		UserID:   user.ID.String(),
		Username: user.Username,
		Role:     user.Role,
	}, h.ttl)
	if err != nil {
		slog.Error("token generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Registration failed"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"token":   signed,
		"user": sessionUser{
			UserID:   user.ID.String(),
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
		"expiresIn": ttlString(h.ttl),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required"})
		return
	}

	// Unknown user and wrong password produce the same response; neither
	// reveals which field was wrong.
	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
			return
		}
		slog.Error("user lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Login failed"})
		return
	}

	match, err := password.Compare(req.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password comparison failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Login failed"})
		return
	}
	if !match {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}

	signed, err := h.tokens.Generate(token.Input{
		UserID:   user.ID.String(),
		Username: user.Username,
		Role:     user.Role,
	}, h.ttl)
	if err != nil {
		slog.Error("token generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Login failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   signed,
		"user": sessionUser{
			UserID:   user.ID.String(),
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
		"expiresIn": ttlString(h.ttl),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tok := token.ExtractFromRequest(r)
	if tok == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "No token provided"})
		return
	}

	newToken, err := h.tokens.Refresh(tok, h.ttl)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":   "Token refresh failed",
			"message": msgInvalidToken,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     newToken,
		"expiresIn": ttlString(h.ttl),
	})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	p, err := h.tokens.VerifyFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"valid": false,
			"error": msgInvalidToken,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": sessionUser{
			UserID:   p.UserID,
			Username: p.Username,
			Role:     p.Role,
		},
	})
}
