package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p2pvps/marketd/internal/opsctl/cmd"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "opsctl",
		Short:   "Operations tool for the marketd device-rental backend",
		Version: version,
	}

	rootCmd.AddCommand(cmd.NewLoginCmd())
	rootCmd.AddCommand(cmd.NewRentedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
