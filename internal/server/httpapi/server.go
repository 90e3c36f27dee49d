// Package httpapi exposes the public REST surface over labstack/echo.
// Handlers translate between JSON payloads and the service layer and map the
// domain error taxonomy onto HTTP statuses; no business rules live here.
package httpapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/auth"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/services"
)

// ImageUploader hands out presigned upload URLs for listing images.
type ImageUploader interface {
	PresignedPutURL(ctx context.Context) (key string, url string, err error)
}

// Server bundles the services behind the REST routes.
type Server struct {
	users    *services.UserService
	catalog  *services.DeviceCatalog
	orch     *services.LeaseOrchestrator
	pool     *services.PortPool
	registry *services.LeaseRegistry
	listings *services.ListingManager
	images   ImageUploader
	logger   logging.Logger
}

func NewServer(users *services.UserService, catalog *services.DeviceCatalog, orch *services.LeaseOrchestrator, pool *services.PortPool, registry *services.LeaseRegistry, listings *services.ListingManager, images ImageUploader, logger logging.Logger) *Server {
	return &Server{
		users:    users,
		catalog:  catalog,
		orch:     orch,
		pool:     pool,
		registry: registry,
		listings: listings,
		images:   images,
		logger:   logger.With("component", "httpapi"),
	}
}

// Router builds the echo engine with all routes registered. Device client
// routes and account creation/login are open; everything under /api requires
// a bearer token.
func (s *Server) Router(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/users", s.createUser)
	e.POST("/auth", s.login)

	client := e.Group("/client")
	client.GET("/register/:id", s.registerDevice)
	client.GET("/checkin/:id", s.checkInDevice)
	client.GET("/expiration/:id", s.deviceExpiration)

	api := e.Group("/api", auth.Middleware([]byte(cfg.SecretKey)))

	api.POST("/devices", s.createDevice)
	api.GET("/devices", s.listDevices)
	api.GET("/devices/:id", s.getDevice)
	api.PUT("/devices/:id", s.updateDevice)
	api.DELETE("/devices/:id", s.deleteDevice)
	api.POST("/devices/:id/image", s.uploadDeviceImage)

	api.GET("/credentials/:id", s.getCredential)
	api.PUT("/credentials/:id", s.updateCredential)

	api.POST("/sshport", s.allocatePort)
	api.DELETE("/sshport/:port", s.releasePort)

	api.POST("/renteddevices", s.addRentedDevice)
	api.GET("/renteddevices", s.listRentedDevices)
	api.DELETE("/renteddevices/:id", s.removeRentedDevice)
	api.GET("/renteddevices/renew/:id", s.renewRentedDevice)

	api.GET("/listings", s.listListings)
	api.GET("/listings/:id", s.getListing)

	return e
}
