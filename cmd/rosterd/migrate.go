// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rosterd/rosterd/internal/store"
)

// NewMigrateCmd creates the migrate subcommand with its up/down/status
// actions.
func NewMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (default: DATABASE_URL env)")

	resolveURL := func() (string, error) {
		url := databaseURL
		if url == "" {
			url = DatabaseURLFromEnv()
		}
		if url == "" {
			return "", oops.Code("CONFIG_INVALID").Errorf("database URL is required, set --database-url or DATABASE_URL")
		}
		return url, nil
	}

	withMigrator := func(fn func(m *store.Migrator) error) error {
		url, err := resolveURL()
		if err != nil {
			return err
		}
		m, err := store.NewMigrator(url)
		if err != nil {
			return err
		}
		defer m.Close() //nolint:errcheck // close error is secondary to the migration result
		return fn(m)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (destructive)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 && !dirty {
					cmd.Println("no migrations applied")
					return nil
				}
				cmd.Printf("version %d (dirty: %v)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}
