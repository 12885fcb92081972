// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Roster CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rosterd",
		Short: "Roster - account directory service",
		Long: `Roster manages a directory of person records used for authentication
and administration: registration with unique emails and hashed credentials,
lookups, paginated listing, and login-principal resolution.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
