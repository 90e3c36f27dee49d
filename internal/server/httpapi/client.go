package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/p2pvps/marketd/internal/server/models"
)

// deviceStatsJSON is the hardware report the device client sends along with a
// registration call. Every field is optional.
type deviceStatsJSON struct {
	Memory        string `json:"memory"`
	DiskSpace     string `json:"diskSpace"`
	Processor     string `json:"processor"`
	InternetSpeed string `json:"internetSpeed"`
}

// registerDevice handles a device coming online. The route is unauthenticated
// like the rest of /client: the device id doubles as the shared secret,
// exactly as the clients in the field expect.
func (s *Server) registerDevice(c echo.Context) error {
	var stats deviceStatsJSON
	// A missing or malformed stats body is fine; registration proceeds
	// without a hardware report.
	_ = c.Bind(&stats)

	res, err := s.orch.Register(c.Request().Context(), c.Param("id"), models.DeviceStats{
		Memory:        stats.Memory,
		DiskSpace:     stats.DiskSpace,
		Processor:     stats.Processor,
		InternetSpeed: stats.InternetSpeed,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"device":   toDeviceJSON(res.Device),
		"username": res.Username,
		"password": res.Password,
		"toPort":   res.Port,
	})
}

func (s *Server) checkInDevice(c echo.Context) error {
	if err := s.orch.CheckIn(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) deviceExpiration(c echo.Context) error {
	res, err := s.orch.GetExpiration(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"expiration": formatTime(res.Expiration),
		"expired":    res.Expired,
	})
}
