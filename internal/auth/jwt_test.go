package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqstream/aqstream/internal/auth"
)

func TestJWTService_GenerateAndValidateOpsToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "aqstream",
		Audience:   "aqstream-ops",
	})

	token, expiresAt, err := svc.GenerateOpsToken("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateOpsToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "aqstream", claims.Issuer)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
	})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateOpsToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	issuing := auth.NewJWTService(auth.JWTConfig{SigningKey: "key-one"})
	validating := auth.NewJWTService(auth.JWTConfig{SigningKey: "key-two"})

	token, _, err := issuing.GenerateOpsToken("alice")
	require.NoError(t, err)

	_, err = validating.ValidateOpsToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_WrongIssuer(t *testing.T) {
	issuing := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "shared-key",
		Issuer:     "someone-else",
	})
	validating := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "shared-key",
	})

	token, _, err := issuing.GenerateOpsToken("alice")
	require.NoError(t, err)

	_, err = validating.ValidateOpsToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_WrongAudience(t *testing.T) {
	issuing := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "shared-key",
		Audience:   "some-other-api",
	})
	validating := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "shared-key",
	})

	token, _, err := issuing.GenerateOpsToken("alice")
	require.NoError(t, err)

	_, err = validating.ValidateOpsToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
