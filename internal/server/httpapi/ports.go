package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/p2pvps/marketd/internal/server/services"
)

// allocatePort hands out the next SSH port together with a throwaway
// username/password pair, the shape operations tooling expects when wiring a
// tunnel by hand rather than through device registration.
func (s *Server) allocatePort(c echo.Context) error {
	port, err := s.pool.Allocate(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	username, password, err := services.NewThrowawayLogin()
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"sshPort": map[string]any{
			"username": username,
			"password": password,
			"port":     port,
		},
	})
}

func (s *Server) releasePort(c echo.Context) error {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil {
		return writeError(c, errUnprocessableBody)
	}

	if err := s.pool.Release(c.Request().Context(), port); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
