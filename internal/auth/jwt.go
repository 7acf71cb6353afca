// Package auth issues and validates the bearer tokens that guard the
// operational API surface. Tokens are HS256 JWTs signed with a shared
// key; there is no user database behind them, only named operators.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OpsTokenExpiry is how long an operator token stays valid. Ops tokens
// are minted by deployment tooling, so a short lifetime keeps a leaked
// token from mattering for long.
const OpsTokenExpiry = 12 * time.Hour

// Predefined JWT errors.
var (
	ErrInvalidToken = errors.New("invalid ops token")
	ErrTokenExpired = errors.New("ops token has expired")
)

// OpsClaims represents the claims in operator access tokens.
type OpsClaims struct {
	jwt.RegisteredClaims

	// Operator is the name of the operator the token was minted for.
	Operator string `json:"op"`
}

// JWTService handles ops token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim for tokens (e.g. "aqstream").
	Issuer string

	// Audience is the audience claim for tokens (e.g. "aqstream-ops").
	Audience string
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Issuer == "" {
		cfg.Issuer = "aqstream"
	}
	if cfg.Audience == "" {
		cfg.Audience = "aqstream-ops"
	}
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// GenerateOpsToken creates a new access token for the named operator.
func (s *JWTService) GenerateOpsToken(operator string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(OpsTokenExpiry)

	claims := OpsClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   operator,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
		Operator: operator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing ops token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateOpsToken validates a token and returns its claims.
func (s *JWTService) ValidateOpsToken(tokenString string) (*OpsClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OpsClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*OpsClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
