package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/grantd/grantd/internal/store"
)

const jwtSecretKey = "jwt_secret"

// SessionClaims are the JWT claims for an API session.
type SessionClaims struct {
	jwt.RegisteredClaims
	Caller string `json:"caller,omitempty"`
}

// GenerateOrLoadSecret returns the JWT signing secret.
// Priority: envSecret (from GRANTD_JWT_SECRET) > service_config > auto-generate.
func GenerateOrLoadSecret(s *store.Store, envSecret string) ([]byte, error) {
	if envSecret != "" {
		return base64.StdEncoding.DecodeString(envSecret)
	}

	val, err := s.GetConfig(jwtSecretKey)
	if err != nil {
		return nil, err
	}
	if val != "" {
		return base64.StdEncoding.DecodeString(val)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)
	if err := s.SetConfig(jwtSecretKey, encoded); err != nil {
		return nil, err
	}
	return secret, nil
}

// IssueSessionJWT creates a signed short-lived session token.
func IssueSessionJWT(secret []byte, caller string) (string, time.Time, error) {
	exp := time.Now().Add(12 * time.Hour)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Caller: caller,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

func validateSessionJWT(secret []byte, tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type sessionRequest struct {
	Token  string `json:"token"`
	Caller string `json:"caller"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.jwtSecret == nil {
		writeError(w, http.StatusNotFound, "auth disabled")
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminTokenHash), []byte(req.Token)); err != nil {
		writeError(w, http.StatusUnauthorized, "bad token")
		return
	}
	caller := req.Caller
	if caller == "" {
		caller = "api"
	}
	signed, exp, err := IssueSessionJWT(s.jwtSecret, caller)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: signed, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

// auth wraps a handler with session validation. With auth disabled the
// handler runs as caller "local".
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.jwtSecret == nil {
			next(w, r.WithContext(withCaller(r.Context(), "local")))
			return
		}
		tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenStr == "" {
			tokenStr = r.URL.Query().Get("token") // websocket clients can't set headers everywhere
		}
		claims, err := validateSessionJWT(s.jwtSecret, tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		next(w, r.WithContext(withCaller(r.Context(), claims.Caller)))
	}
}
