package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userJSON struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) createUser(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"status": 422, "error": "Unprocessable Entity"})
	}

	user, err := s.users.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"user": userJSON{ID: user.ID, Username: user.UserName, Role: user.Role},
	})
}

func (s *Server) login(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"status": 422, "error": "Unprocessable Entity"})
	}

	token, user, err := s.users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token": token,
		"user":  userJSON{ID: user.ID, Username: user.UserName, Role: user.Role},
	})
}
