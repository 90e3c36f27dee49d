package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewRentedCmd creates the rented command group.
func NewRentedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rented",
		Short: "Manage the rented-device list",
	}

	cmd.AddCommand(newRentedListCmd())
	cmd.AddCommand(newRentedAddCmd())
	cmd.AddCommand(newRentedRemoveCmd())
	cmd.AddCommand(newRentedRenewCmd())

	return cmd
}

func newRentedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rented device ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}

			ids, err := c.RentedList(cmd.Context())
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				fmt.Println("No rented devices")
				return nil
			}

			fmt.Printf("Rented devices (%d)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}

func newRentedAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <device-id>",
		Short: "Add a device to the rented list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}

			if err := c.RentedAdd(cmd.Context(), args[0]); err != nil {
				return err
			}
			color.Green("Added %s", args[0])
			return nil
		},
	}
}

func newRentedRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <device-id>",
		Short: "Remove a device from the rented list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}

			if err := c.RentedRemove(cmd.Context(), args[0]); err != nil {
				return err
			}
			color.Yellow("Removed %s", args[0])
			return nil
		},
	}
}

func newRentedRenewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew <device-id>",
		Short: "Republish the marketplace listing of a rented device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := apiClient()
			if err != nil {
				return err
			}

			listingID, err := c.RentedRenew(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			color.Green("Renewed %s, new listing %s", args[0], listingID)
			return nil
		},
	}
}
