package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "Account registration and token issuing service",
		Long: `authd registers accounts, verifies logins and issues HS512 access tokens.
Configuration is read from the environment (see JWT_SECRET, STORE_DRIVER).`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
