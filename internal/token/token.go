// Package token issues and verifies the stateless bearer tokens used for
// session auth. Tokens are self-contained HS256 JWTs; nothing is stored
// server-side, so expiry is enforced at verification time only.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/store"
)

const (
	// Issuer and audience are part of the wire format; verification rejects
	// tokens that do not carry both.
	Issuer   = "react-app"
	Audience = "react-app-users"

	// DefaultTTL applies when callers pass a zero duration.
	DefaultTTL = 24 * time.Hour
)

var (
	ErrNoToken          = errors.New("no token provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not active yet")
	ErrUserNotFound     = errors.New("user not found")
)

// Input is the claim set embedded at signing time. Extra fields are merged
// into the payload untouched, so callers can extend tokens without this
// package knowing about the new claims.
type Input struct {
	UserID   string
	Username string
	Role     string
	Extra    map[string]any
}

// Principal is a verified token's identity.
type Principal struct {
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	Role     string        `json:"role"`
	Claims   jwt.MapClaims `json:"-"`
}

type Service struct {
	secret []byte
	users  store.Store
}

func NewService(secret string, users store.Store) *Service {
	return &Service{secret: []byte(secret), users: users}
}

// Generate signs a token for the given identity. Role defaults to "user",
// ttl to DefaultTTL.
func (s *Service) Generate(in Input, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	role := in.Role
	if role == "" {
		role = "user"
	}

	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range in.Extra {
		claims[k] = v
	}
	claims["userId"] = in.UserID
	claims["username"] = in.Username
	claims["role"] = role
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	claims["iss"] = Issuer
	claims["aud"] = Audience

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience, and timing claims. An optional
// "Bearer " prefix is stripped first. Failures are distinguished internally
// (invalid vs expired vs not-yet-valid) even though the HTTP layer collapses
// them.
func (s *Service) Verify(tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		return nil, ErrNoToken
	}
	clean := stripBearer(tokenStr)

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(clean, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(Audience))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return principalFromClaims(claims), nil
}

// Decode parses a token without verifying the signature, for inspection
// only. Never use the result for authorization decisions.
func (s *Service) Decode(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(stripBearer(tokenStr), claims)
	if err != nil {
		return nil, fmt.Errorf("token decode failed: %w", err)
	}
	return claims, nil
}

// Refresh re-signs a still-valid token's claims with a new TTL. Timing
// claims are stripped before re-signing so the new expiry is authoritative.
// An expired token cannot be refreshed.
func (s *Service) Refresh(tokenStr string, ttl time.Duration) (string, error) {
	p, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}

	extra := make(map[string]any, len(p.Claims))
	for k, v := range p.Claims {
		switch k {
		case "exp", "iat", "iss", "aud", "userId", "username", "role":
		default:
			extra[k] = v
		}
	}
	return s.Generate(Input{
		UserID:   p.UserID,
		Username: p.Username,
		Role:     p.Role,
		Extra:    extra,
	}, ttl)
}

// ExtractFromRequest pulls a token from the request, checking in order the
// Authorization header (Bearer), the X-Auth-Token header, and the "token"
// cookie. The ordering is a contract other clients rely on.
func ExtractFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if t := r.Header.Get("X-Auth-Token"); t != "" {
		return t
	}
	if c, err := r.Cookie("token"); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// VerifyFromRequest extracts and verifies in one step, returning a
// (principal, error) pair so callers can branch without panicking paths.
func (s *Service) VerifyFromRequest(r *http.Request) (*Principal, error) {
	tok := ExtractFromRequest(r)
	if tok == "" {
		return nil, ErrNoToken
	}
	return s.Verify(tok)
}

// VerifyAndGetUser verifies the request's token and then re-fetches the user
// record so the caller sees current state rather than stale token claims. A
// valid token whose user has since been deleted yields ErrUserNotFound.
func (s *Service) VerifyAndGetUser(ctx context.Context, r *http.Request) (*models.PublicUser, error) {
	p, err := s.VerifyFromRequest(r)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return u.Public(), nil
}

func stripBearer(tok string) string {
	if len(tok) > 7 && strings.EqualFold(tok[:7], "bearer ") {
		return strings.TrimSpace(tok[7:])
	}
	return tok
}

func principalFromClaims(claims jwt.MapClaims) *Principal {
	str := func(k string) string {
		if v, ok := claims[k].(string); ok {
			return v
		}
		return ""
	}
	return &Principal{
		UserID:   str("userId"),
		Username: str("username"),
		Role:     str("role"),
		Claims:   claims,
	}
}
