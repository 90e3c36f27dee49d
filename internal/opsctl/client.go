// Package opsctl implements the operations command-line tool: a thin client
// for the server's REST API used to manage the rented-device list.
package opsctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient talks to the marketd HTTP API.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *APIClient) SetToken(token string) { c.token = token }

func (c *APIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *APIClient) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

// RentedList returns the device ids currently on the rented list.
func (c *APIClient) RentedList(ctx context.Context) ([]string, error) {
	var out struct {
		Devices []string `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/renteddevices", nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// RentedAdd puts a device id on the rented list.
func (c *APIClient) RentedAdd(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPost, "/api/renteddevices", map[string]string{"deviceId": deviceID}, nil)
}

// RentedRemove takes a device id off the rented list.
func (c *APIClient) RentedRemove(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/renteddevices/"+deviceID, nil, nil)
}

// RentedRenew republishes the marketplace listing of a rented device and
// returns the new listing id.
func (c *APIClient) RentedRenew(ctx context.Context, deviceID string) (string, error) {
	var out struct {
		ListingID string `json:"obContract"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/renteddevices/renew/"+deviceID, nil, &out); err != nil {
		return "", err
	}
	return out.ListingID, nil
}
