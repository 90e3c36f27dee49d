package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type rentedDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

func (s *Server) addRentedDevice(c echo.Context) error {
	var req rentedDeviceRequest
	if err := c.Bind(&req); err != nil || req.DeviceID == "" {
		return writeError(c, errUnprocessableBody)
	}

	if err := s.registry.Add(c.Request().Context(), req.DeviceID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"deviceId": req.DeviceID})
}

func (s *Server) listRentedDevices(c echo.Context) error {
	ids, err := s.registry.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"devices": ids})
}

func (s *Server) removeRentedDevice(c echo.Context) error {
	if err := s.registry.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) renewRentedDevice(c echo.Context) error {
	listingID, err := s.orch.Renew(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"obContract": listingID})
}
