// Package cmd holds the cobra commands of the opsctl tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/p2pvps/marketd/internal/opsctl"
)

const sessionFileName = ".marketd-opsctl.json"

// session is the state persisted between opsctl invocations.
type session struct {
	ServerURL string `json:"serverUrl"`
	Token     string `json:"token"`
}

func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, sessionFileName), nil
}

func loadSession() (*session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &session{}, nil
		}
		return nil, err
	}

	s := &session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) save() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	// The file holds a bearer token; keep it owner-only.
	return os.WriteFile(path, data, 0o600)
}

func apiClientFor(s *session) (*opsctl.APIClient, error) {
	if s.ServerURL == "" {
		return nil, fmt.Errorf("no server configured, run 'opsctl login' first")
	}
	c := opsctl.NewAPIClient(s.ServerURL)
	c.SetToken(s.Token)
	return c, nil
}

// apiClient builds an authenticated client from the saved session, failing
// early when there is no token yet.
func apiClient() (*opsctl.APIClient, error) {
	s, err := loadSession()
	if err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, fmt.Errorf("not logged in, run 'opsctl login' first")
	}
	return apiClientFor(s)
}
