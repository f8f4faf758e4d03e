// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rostercraft/rostercraft/internal/seed"
	"github.com/rostercraft/rostercraft/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
	migrate bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Create a tournament from a YAML fixture",
		Long: `Creates a tournament with its roles, staff members and permission
grants from a YAML fixture, in one transaction.

A fixture with a fixed tournament id is idempotent: when that tournament
already exists nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.migrate, "migrate", false, "apply pending migrations first")

	return cmd
}

func runSeed(cmd *cobra.Command, path string, sc *seedConfig) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fixture, err := seed.LoadFile(path)
	if err != nil {
		return err
	}

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	if sc.migrate {
		cmd.Println("Running migrations...")
		if err := withMigrator(cmd, func(m Migrator) error { return m.Up() }); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var res *seed.Result
	svc := store.NewPostgresTournamentService(pool)
	err = svc.InTransaction(ctx, func(tx *store.PostgresTournamentService) error {
		var applyErr error
		res, applyErr = seed.Apply(ctx, tx, fixture)
		return applyErr
	})
	if err != nil {
		return err
	}

	if res.Skipped {
		cmd.Printf("Tournament %s already exists, skipping seed\n", res.Tournament.ID)
		return nil
	}
	cmd.Printf("Created tournament %q (%s): %d roles, %d staff members, %d grants\n",
		res.Tournament.Name, res.Tournament.ID, len(res.Roles), len(res.Staff), len(res.Grants))
	slog.Info("seed complete", "tournament_id", res.Tournament.ID.String(), "path", path)
	return nil
}
