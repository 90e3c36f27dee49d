package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/p2pvps/marketd/internal/common"
)

var (
	errUnprocessableBody = fmt.Errorf("malformed request body: %w", common.ErrUnprocessable)
	errAdminOnly         = fmt.Errorf("admin role required: %w", common.ErrUnauthorized)
)

// writeError maps domain sentinel errors to HTTP statuses. Anything the
// taxonomy does not cover becomes a 500 without leaking the error text.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Internal Server Error"

	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
		message = "Not Found"
	case errors.Is(err, common.ErrConflict):
		status = http.StatusConflict
		message = "Conflict"
	case errors.Is(err, common.ErrUnprocessable):
		status = http.StatusUnprocessableEntity
		message = "Unprocessable Entity"
	case errors.Is(err, common.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = "Unauthorized"
	case errors.Is(err, common.ErrMarketplaceUnavailable):
		status = http.StatusServiceUnavailable
		message = "Marketplace Unavailable"
	}

	return c.JSON(status, map[string]any{"status": status, "error": message})
}
