package middleware

import (
	"relay-api/internal/auth"
	"relay-api/internal/ctx"
	"relay-api/internal/shared"

	"github.com/labstack/echo/v4"
)

// Verifier is what the gate needs from the token service.
type Verifier interface {
	Verify(token string) (*shared.Identity, *shared.RequestError)
}

var _ Verifier = (*auth.TokenService)(nil)

type AuthMiddleware struct {
	verifier Verifier
}

func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// ExtractIdentity attaches the verified identity when a valid bearer token
// is present. It never rejects on its own; RequireIdentity does that.
func (am *AuthMiddleware) ExtractIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*ctx.Context)
		c.Identity = nil

		token, err := shared.ExtractBearerToken(c)
		if err != nil {
			return next(c)
		}
		ident, rerr := am.verifier.Verify(token)
		if rerr != nil {
			return next(c)
		}
		c.Identity = ident
		c.Log = c.Log.With("subject", ident.Subject)
		return next(c)
	}
}

// RequireIdentity rejects before the handler runs, so no upstream call is
// ever made on behalf of an unauthenticated request.
func (am *AuthMiddleware) RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*ctx.Context)
		if c.Identity != nil {
			return next(c)
		}

		// Re-run verification for the error shape: expired tokens get a
		// distinct message from missing or tampered ones.
		token, rerr := shared.ExtractBearerToken(c)
		if rerr != nil {
			return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
		}
		_, rerr = am.verifier.Verify(token)
		if rerr == nil {
			rerr = shared.ErrInvalidToken
		}
		return c.JSON(rerr.StatusCode, shared.NewAPIError(rerr))
	}
}
