package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			fmt.Print("Password: ")
			password, err := readPassword()
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			s, err := loadSession()
			if err != nil {
				return err
			}
			if server != "" {
				s.ServerURL = server
			}
			if s.ServerURL == "" {
				return fmt.Errorf("no server configured, pass --server")
			}

			c, err := apiClientFor(s)
			if err != nil {
				return err
			}

			token, err := c.Login(cmd.Context(), username, string(password))
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			s.Token = token
			if err := s.save(); err != nil {
				return err
			}

			color.Green("Logged in as %s", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "marketd server base URL (e.g. http://localhost:5000)")

	return cmd
}
