package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fueltrack/api/internal/service"
	"github.com/fueltrack/api/internal/util"
)

const contextIdentityKey = "auth.identity"

// RequireAuth verifies the bearer access token on every protected request
// and stashes the extracted identity in the request context.
func RequireAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if strings.TrimSpace(authHeader) == "" {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid authorization header"))
			}
			identity, err := auth.VerifyAccessToken(strings.TrimSpace(parts[1]))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid or expired token"))
			}
			c.Set(contextIdentityKey, identity)
			return next(c)
		}
	}
}

func CurrentIdentity(c echo.Context) (service.Identity, bool) {
	identity, ok := c.Get(contextIdentityKey).(service.Identity)
	return identity, ok
}
