package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/reelsync/api"
	"github.com/rs/zerolog/log"
)

// BearerAuth rejects requests whose Authorization header does not carry
// token as a Bearer credential. It guards the local API against other
// processes on the same machine.
func BearerAuth(token string) echo.MiddlewareFunc {
	want := []byte(token)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized,
					api.NewErrorResponse(api.ErrCodeUnauthorized, "Missing Authorization header"))
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized,
					api.NewErrorResponse(api.ErrCodeUnauthorized, "Expected a Bearer token"))
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), want) != 1 {
				log.Warn().Str("path", c.Path()).Str("remote", c.RealIP()).Msg("Rejected API token")
				return c.JSON(http.StatusUnauthorized,
					api.NewErrorResponse(api.ErrCodeUnauthorized, "Invalid token"))
			}

			return next(c)
		}
	}
}
