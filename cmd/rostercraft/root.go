// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/rostercraft/rostercraft/internal/config"
	"github.com/rostercraft/rostercraft/internal/logging"
)

// NewRootCmd creates the root command for the RosterCraft CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rostercraft",
		Short: "RosterCraft - tournament staff roles and permissions",
		Long: `RosterCraft manages the staff roles of community tournaments: their
display order, protected roles, and which roles and staff members may
manage participants, roles and matches.

Run "rostercraft serve" for the HTTP API, or use the roles and
permissions commands to work against a running server.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (YAML)")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "log format (json or text)")
	flags.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	flags.String("remote-url", config.DefaultRemoteURL, "RosterCraft API URL used by client commands")
	flags.Duration("remote-timeout", config.DefaultRemoteTimeout, "timeout of each API request")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewValidateSeedCmd())
	cmd.AddCommand(NewRolesCmd())
	cmd.AddCommand(NewPermissionsCmd())

	return cmd
}

// loadConfig resolves the configuration for cmd and installs the default
// logger. Logs go to the command's error stream.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.SetDefault(logging.Options{
		Service: "rostercraft",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}
