package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lazypower/forgeone/internal/apperr"
)

type ctxKey string

const ownerKey ctxKey = "owner"

var errNoSubject = errors.New("token has no subject")

// OwnerFromToken verifies an HS256 token and returns its subject.
func OwnerFromToken(token string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

// requireOwner rejects requests without a valid bearer token and stores
// the token subject as the request owner.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 {
			s.writeError(w, r, apperr.Unauthorized("Authentication is not configured"))
			return
		}
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			s.writeError(w, r, apperr.Unauthorized("Access token required"))
			return
		}
		owner, err := OwnerFromToken(strings.TrimSpace(token), s.secret)
		if err != nil {
			s.log.Debug(r.Context(), "rejected token", "path", r.URL.Path, "err", err)
			s.writeError(w, r, apperr.Unauthorized("Invalid or expired token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

// owner returns the authenticated owner of r. Empty outside requireOwner.
func owner(r *http.Request) string {
	v, _ := r.Context().Value(ownerKey).(string)
	return v
}
