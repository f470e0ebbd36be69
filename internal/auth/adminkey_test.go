package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/triagehq/request-triage/internal/config"
)

func TestVerifyStaticKey(t *testing.T) {
	v := NewAdminVerifier(config.AdminConfig{Key: "super-secret"})

	assert.True(t, v.Verify("super-secret"))
	assert.True(t, v.Verify("  super-secret  "))
	assert.False(t, v.Verify("wrong"))
	assert.False(t, v.Verify(""))
}

func TestVerifyHashedKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("super-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewAdminVerifier(config.AdminConfig{KeyHash: string(hash)})
	assert.True(t, v.Verify("super-secret"))
	assert.False(t, v.Verify("wrong"))
}

func TestVerifyAdminToken(t *testing.T) {
	secret := "token-secret"
	v := NewAdminVerifier(config.AdminConfig{JWTSecret: secret})

	sign := func(role string, method jwt.SigningMethod, key any) string {
		token := jwt.NewWithClaims(method, adminClaims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	assert.True(t, v.Verify(sign("ADMIN", jwt.SigningMethodHS256, []byte(secret))))
	assert.False(t, v.Verify(sign("AGENT", jwt.SigningMethodHS256, []byte(secret))))
	assert.False(t, v.Verify(sign("ADMIN", jwt.SigningMethodHS256, []byte("other-secret"))))
}

func TestVerifyNothingConfigured(t *testing.T) {
	v := NewAdminVerifier(config.AdminConfig{})
	assert.False(t, v.Verify("anything"))
}
