// Package auth verifies the out-of-band admin credential that gates role
// administration. The credential arrives in the x-admin-key header and may
// be the configured static key, a key checked against a bcrypt hash, or an
// HS256 token minted by an external identity provider.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/triagehq/request-triage/internal/config"
)

// AdminVerifier checks admin credentials.
type AdminVerifier struct {
	key       string
	keyHash   string
	jwtSecret []byte
}

// NewAdminVerifier builds a verifier from configuration.
func NewAdminVerifier(cfg config.AdminConfig) *AdminVerifier {
	return &AdminVerifier{
		key:       cfg.Key,
		keyHash:   cfg.KeyHash,
		jwtSecret: []byte(cfg.JWTSecret),
	}
}

// adminClaims is the payload of an externally issued admin token.
type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verify reports whether the presented credential grants admin access.
// A service with no admin credential configured rejects everything.
func (v *AdminVerifier) Verify(credential string) bool {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return false
	}
	if v.key != "" && subtle.ConstantTimeCompare([]byte(v.key), []byte(credential)) == 1 {
		return true
	}
	if v.keyHash != "" && bcrypt.CompareHashAndPassword([]byte(v.keyHash), []byte(credential)) == nil {
		return true
	}
	if len(v.jwtSecret) > 0 && v.verifyToken(credential) {
		return true
	}
	return false
}

func (v *AdminVerifier) verifyToken(tokenStr string) bool {
	parsed, err := jwt.ParseWithClaims(tokenStr, &adminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(*adminClaims)
	return ok && claims.Role == "ADMIN"
}
