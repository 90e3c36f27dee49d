package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/p2pvps/marketd/internal/server/auth"
	"github.com/p2pvps/marketd/internal/server/models"
)

// deviceJSON mirrors the wire shape the device clients and the web frontend
// already speak: camelCase fields, Mongo-style "_id".
type deviceJSON struct {
	ID               string `json:"_id"`
	OwnerUser        string `json:"ownerUser"`
	RenterUser       string `json:"renterUser,omitempty"`
	PrivateData      string `json:"privateData,omitempty"`
	ObContract       string `json:"obContract,omitempty"`
	RentStartDate    string `json:"rentStartDate,omitempty"`
	Expiration       string `json:"expiration,omitempty"`
	CheckinTimeStamp string `json:"checkinTimeStamp,omitempty"`
	DeviceName       string `json:"deviceName,omitempty"`
	DeviceDesc       string `json:"deviceDesc,omitempty"`
	RentHourlyRate   string `json:"rentHourlyRate,omitempty"`
	Subdomain        string `json:"subdomain,omitempty"`
	HTTPPort         string `json:"httpPort,omitempty"`
	SSHPort          string `json:"sshPort,omitempty"`
	Memory           string `json:"memory,omitempty"`
	DiskSpace        string `json:"diskSpace,omitempty"`
	Processor        string `json:"processor,omitempty"`
	InternetSpeed    string `json:"internetSpeed,omitempty"`
	ImageKey         string `json:"imageKey,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toDeviceJSON(d *models.Device) deviceJSON {
	return deviceJSON{
		ID:               d.ID,
		OwnerUser:        d.OwnerUser,
		RenterUser:       d.RenterUser,
		PrivateData:      d.Credential,
		ObContract:       d.ListingID,
		RentStartDate:    formatTime(d.RentStartDate),
		Expiration:       formatTime(d.Expiration),
		CheckinTimeStamp: formatTime(d.CheckinTimeStamp),
		DeviceName:       d.DeviceName,
		DeviceDesc:       d.DeviceDesc,
		RentHourlyRate:   d.RentHourlyRate,
		Subdomain:        d.Subdomain,
		HTTPPort:         d.HTTPPort,
		SSHPort:          d.SSHPort,
		Memory:           d.Memory,
		DiskSpace:        d.DiskSpace,
		Processor:        d.Processor,
		InternetSpeed:    d.InternetSpeed,
		ImageKey:         d.ImageKey,
	}
}

func fromDeviceJSON(j deviceJSON) models.Device {
	return models.Device{
		ID:               j.ID,
		RenterUser:       j.RenterUser,
		RentStartDate:    parseTime(j.RentStartDate),
		Expiration:       parseTime(j.Expiration),
		CheckinTimeStamp: parseTime(j.CheckinTimeStamp),
		DeviceName:       j.DeviceName,
		DeviceDesc:       j.DeviceDesc,
		RentHourlyRate:   j.RentHourlyRate,
		Subdomain:        j.Subdomain,
		HTTPPort:         j.HTTPPort,
		SSHPort:          j.SSHPort,
		Memory:           j.Memory,
		DiskSpace:        j.DiskSpace,
		Processor:        j.Processor,
		InternetSpeed:    j.InternetSpeed,
		ImageKey:         j.ImageKey,
	}
}

func (s *Server) createDevice(c echo.Context) error {
	var req deviceJSON
	if err := c.Bind(&req); err != nil {
		return writeError(c, errUnprocessableBody)
	}

	device := fromDeviceJSON(req)
	if err := s.catalog.Create(c.Request().Context(), &device, auth.CallerID(c)); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{"device": toDeviceJSON(&device)})
}

func (s *Server) listDevices(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		devices []*models.Device
		err     error
	)
	if owner := c.QueryParam("owner"); owner != "" {
		devices, err = s.catalog.ListByOwner(ctx, owner)
	} else {
		devices, err = s.catalog.List(ctx)
	}
	if err != nil {
		return writeError(c, err)
	}

	out := []deviceJSON{}
	for _, d := range devices {
		out = append(out, toDeviceJSON(d))
	}
	return c.JSON(http.StatusOK, map[string]any{"devices": out})
}

func (s *Server) getDevice(c echo.Context) error {
	device, err := s.catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"device": toDeviceJSON(device)})
}

func (s *Server) updateDevice(c echo.Context) error {
	var req deviceJSON
	if err := c.Bind(&req); err != nil {
		return writeError(c, errUnprocessableBody)
	}

	device := fromDeviceJSON(req)
	device.ID = c.Param("id")

	err := s.catalog.Update(c.Request().Context(), &device, auth.CallerID(c), auth.CallerRole(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"device": toDeviceJSON(&device)})
}

func (s *Server) deleteDevice(c echo.Context) error {
	err := s.orch.DeleteDevice(c.Request().Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) uploadDeviceImage(c echo.Context) error {
	ctx := c.Request().Context()

	device, err := s.catalog.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}

	key, url, err := s.images.PresignedPutURL(ctx)
	if err != nil {
		return writeError(c, err)
	}

	device.ImageKey = key
	if err := s.catalog.Update(ctx, device, auth.CallerID(c), auth.CallerRole(c)); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"key": key, "uploadUrl": url})
}

type credentialJSON struct {
	ID           string  `json:"_id"`
	OwnerUser    string  `json:"ownerUser"`
	DeviceID     string  `json:"publicData"`
	RenterUser   string  `json:"renterUser,omitempty"`
	Username     string  `json:"username,omitempty"`
	Password     string  `json:"password,omitempty"`
	AssignedPort int     `json:"serverSSHPort,omitempty"`
	MoneyPending float64 `json:"moneyPending"`
	MoneyOwed    float64 `json:"moneyOwed"`
}

func toCredentialJSON(cred *models.DeviceCredential) credentialJSON {
	return credentialJSON{
		ID:           cred.ID,
		OwnerUser:    cred.OwnerUser,
		DeviceID:     cred.DeviceID,
		RenterUser:   cred.RenterUser,
		Username:     cred.Username,
		Password:     cred.Password,
		AssignedPort: cred.AssignedPort,
		MoneyPending: cred.MoneyPending,
		MoneyOwed:    cred.MoneyOwed,
	}
}

func (s *Server) getCredential(c echo.Context) error {
	if auth.CallerRole(c) != models.RoleAdmin {
		return writeError(c, errAdminOnly)
	}

	cred, err := s.catalog.GetCredential(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"credential": toCredentialJSON(cred)})
}

func (s *Server) updateCredential(c echo.Context) error {
	if auth.CallerRole(c) != models.RoleAdmin {
		return writeError(c, errAdminOnly)
	}

	var req credentialJSON
	if err := c.Bind(&req); err != nil {
		return writeError(c, errUnprocessableBody)
	}

	cred := models.DeviceCredential{
		ID:           c.Param("id"),
		RenterUser:   req.RenterUser,
		MoneyPending: req.MoneyPending,
		MoneyOwed:    req.MoneyOwed,
	}
	if err := s.catalog.UpdateCredential(c.Request().Context(), &cred); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"credential": toCredentialJSON(&cred)})
}
