// Package auth issues and verifies the bearer tokens guarding every
// protected route.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"relay-api/internal/shared"

	"github.com/golang-jwt/jwt/v5"
)

type TokenService struct {
	secret        []byte
	adminEmail    string
	adminPassword string
	lifetime      time.Duration

	// test hook, defaults to time.Now
	now func() time.Time
}

func NewTokenService(cfg *shared.Config) *TokenService {
	return &TokenService{
		secret:        []byte(cfg.JWTSecret),
		adminEmail:    cfg.AdminEmail,
		adminPassword: cfg.AdminPassword,
		lifetime:      cfg.TokenLifetime,
		now:           time.Now,
	}
}

// Issue checks the credential pair against the configured admin identity and
// mints a signed token. Both comparisons always run so a mismatch on one
// field costs the same as a mismatch on both.
func (ts *TokenService) Issue(email, password string) (string, *shared.RequestError) {
	if email == "" || password == "" {
		return "", shared.ErrInvalidRequest
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(ts.adminEmail))
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(ts.adminPassword))
	if emailOK&passwordOK != 1 {
		return "", shared.ErrUnauthorized
	}

	now := ts.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    shared.TokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.lifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", shared.ErrInternalServerError
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the identity encoded in
// the token. Expired tokens are reported distinctly from tampered or
// malformed ones.
func (ts *TokenService) Verify(tokenString string) (*shared.Identity, *shared.RequestError) {
	if tokenString == "" {
		return nil, shared.ErrInvalidToken
	}

	parser := jwt.NewParser(jwt.WithTimeFunc(ts.now))
	token, err := parser.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return ts.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, shared.ErrTokenExpired
		}
		return nil, shared.ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, shared.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, shared.ErrInvalidToken
	}

	return &shared.Identity{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
