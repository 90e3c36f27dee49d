package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/p2pvps/marketd/internal/server/models"
)

type listingJSON struct {
	ID           string  `json:"_id"`
	DeviceID     string  `json:"clientDevice"`
	OwnerUser    string  `json:"ownerUser"`
	RenterUser   string  `json:"renterUser,omitempty"`
	Price        float64 `json:"price"`
	Expiration   string  `json:"expiration,omitempty"`
	Title        string  `json:"title,omitempty"`
	Description  string  `json:"description,omitempty"`
	ListingSlug  string  `json:"listingSlug,omitempty"`
	ImageHash    string  `json:"imageHash,omitempty"`
	ListingState string  `json:"listingState,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

func toListingJSON(l *models.Listing) listingJSON {
	return listingJSON{
		ID:           l.ID,
		DeviceID:     l.DeviceID,
		OwnerUser:    l.OwnerUser,
		RenterUser:   l.RenterUser,
		Price:        l.Price,
		Expiration:   formatTime(l.Expiration),
		Title:        l.Title,
		Description:  l.Description,
		ListingSlug:  l.ListingSlug,
		ImageHash:    l.ImageHash,
		ListingState: l.ListingState,
		CreatedAt:    formatTime(l.CreatedAt),
		UpdatedAt:    formatTime(l.UpdatedAt),
	}
}

func (s *Server) listListings(c echo.Context) error {
	all, err := s.listings.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	out := []listingJSON{}
	for _, l := range all {
		out = append(out, toListingJSON(l))
	}
	return c.JSON(http.StatusOK, map[string]any{"listings": out})
}

func (s *Server) getListing(c echo.Context) error {
	listing, err := s.listings.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"listing": toListingJSON(listing)})
}
