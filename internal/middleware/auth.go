// Package middleware provides the echo middleware for the ledger API:
// capability token parsing and request logging.
package middleware

import (
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/nilelink/ledger/internal/auth"
	"github.com/nilelink/ledger/internal/models"
)

// callerKey is the echo context key holding the authenticated caller.
const callerKey = "ledger.caller"

// RequireCapability returns middleware that validates a Bearer capability
// token and stores the resulting models.Caller on the request context.
// Requests without a valid token are rejected with 401; whether the caller
// holds the specific capability is checked by the engines.
func RequireCapability(mgr *auth.JWTManager) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, tokenString string) (any, error) {
			claims, err := mgr.Validate(tokenString)
			if err != nil {
				return nil, err
			}
			c.Set(callerKey, claims.Caller())
			return claims, nil
		},
	})
}

// CallerFrom extracts the authenticated caller from the request context.
// Unauthenticated requests yield a zero Caller with no capabilities.
func CallerFrom(c echo.Context) models.Caller {
	caller, _ := c.Get(callerKey).(models.Caller)
	return caller
}
