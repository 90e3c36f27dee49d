package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys under which the middleware stores the verified caller.
const (
	ContextKeyUserID = "callerID"
	ContextKeyRole   = "callerRole"
)

// Middleware returns an echo middleware that requires a valid
// "Authorization: Bearer <token>" header and stores the caller's id and role
// on the request context. Handlers behind it can trust both values as
// already verified.
func Middleware(secretKey []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]any{"status": 401, "error": "Unauthorized"})
			}

			userID, role, err := ParseToken(token, secretKey)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]any{"status": 401, "error": "Unauthorized"})
			}

			c.Set(ContextKeyUserID, userID)
			c.Set(ContextKeyRole, role)
			return next(c)
		}
	}
}

// CallerID returns the verified caller id set by Middleware, or "" when the
// route is not behind it.
func CallerID(c echo.Context) string {
	id, _ := c.Get(ContextKeyUserID).(string)
	return id
}

// CallerRole returns the verified caller role set by Middleware.
func CallerRole(c echo.Context) string {
	role, _ := c.Get(ContextKeyRole).(string)
	return role
}
