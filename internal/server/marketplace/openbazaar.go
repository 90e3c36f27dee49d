package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/sethvargo/go-retry"
)

// OpenBazaarClient talks to a local OpenBazaar server via its REST API.
type OpenBazaarClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   logging.Logger
}

func NewOpenBazaarClient(baseURL, username, password string, logger logging.Logger) *OpenBazaarClient {
	return &OpenBazaarClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// listingPayload mirrors the listing document the OpenBazaar API expects.
// Only the fields the server cares about are populated.
type listingPayload struct {
	Metadata listingMetadata `json:"metadata"`
	Item     listingItem     `json:"item"`
}

type listingMetadata struct {
	ContractType    string `json:"contractType"`
	Expiry          string `json:"expiry"`
	Format          string `json:"format"`
	PricingCurrency string `json:"pricingCurrency"`
}

type listingItem struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Condition   string         `json:"condition"`
	Nsfw        bool           `json:"nsfw"`
	Images      []listingImage `json:"images,omitempty"`
	Skus        []listingSku   `json:"skus"`
}

type listingImage struct {
	Filename string `json:"filename"`
	Original string `json:"original"`
}

type listingSku struct {
	Quantity  int    `json:"quantity"`
	ProductID string `json:"productID"`
}

type createListingResponse struct {
	Slug string `json:"slug"`
}

func (c *OpenBazaarClient) CreateListing(ctx context.Context, data ListingData) (string, error) {
	payload := listingPayload{
		Metadata: listingMetadata{
			ContractType:    "SERVICE",
			Expiry:          data.Expiration.UTC().Format(time.RFC3339),
			Format:          "FIXED_PRICE",
			PricingCurrency: "USD",
		},
		Item: listingItem{
			// The device id is appended to the title so listings stay
			// distinguishable in the marketplace UI.
			Title:       fmt.Sprintf("%s (%s)", data.Title, data.DeviceID),
			Description: data.Description,
			Price:       data.Price,
			Condition:   "NEW",
			Skus: []listingSku{
				{Quantity: 1, ProductID: data.DeviceID},
			},
		},
	}
	if data.ImageURL != "" {
		payload.Item.Images = []listingImage{{Filename: "listing.png", Original: data.ImageURL}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal listing: %w", err)
	}

	var slug string
	err = c.do(ctx, http.MethodPost, "/ob/listing", body, func(status int, respBody []byte) error {
		if status != http.StatusOK && status != http.StatusCreated {
			return fmt.Errorf("%w: create listing returned status %d", common.ErrMarketplaceUnavailable, status)
		}
		var resp createListingResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return fmt.Errorf("%w: decode create listing response: %v", common.ErrMarketplaceUnavailable, err)
		}
		slug = resp.Slug
		return nil
	})
	if err != nil {
		return "", err
	}
	return slug, nil
}

func (c *OpenBazaarClient) RemoveListing(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/ob/listing/"+slug, nil, func(status int, _ []byte) error {
		// A 404 means the listing is already gone, which is what the caller
		// wanted anyway.
		if status == http.StatusNotFound {
			return nil
		}
		if status != http.StatusOK {
			return fmt.Errorf("%w: remove listing returned status %d", common.ErrMarketplaceUnavailable, status)
		}
		return nil
	})
}

func (c *OpenBazaarClient) SendRefund(ctx context.Context, refund Refund) error {
	body, err := json.Marshal(map[string]any{
		"address": refund.Address,
		"amount":  refund.Amount,
		"memo":    refund.Memo,
	})
	if err != nil {
		return fmt.Errorf("marshal refund: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/wallet/spend", body, func(status int, _ []byte) error {
		if status != http.StatusOK {
			return fmt.Errorf("%w: refund returned status %d", common.ErrMarketplaceUnavailable, status)
		}
		return nil
	})
}

// do runs one HTTP exchange against the marketplace, retrying transport-level
// failures with fibonacci backoff. HTTP status handling is delegated to
// handle; statuses are never retried because the marketplace treats repeated
// writes as new operations.
func (c *OpenBazaarClient) do(ctx context.Context, method, path string, body []byte, handle func(status int, body []byte) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(250*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.username, c.password)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn(ctx, "marketplace request failed, retrying", "method", method, "path", path, "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return handle(resp.StatusCode, respBody)
	})
	if err == nil {
		return nil
	}
	// Transport errors that survived the retries mean the marketplace server
	// is unreachable.
	if !errors.Is(err, common.ErrMarketplaceUnavailable) {
		return fmt.Errorf("%w: %v", common.ErrMarketplaceUnavailable, err)
	}
	return err
}
