// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rostercraft/rostercraft/internal/seed"
)

// NewValidateSeedCmd creates the validate-seed subcommand.
func NewValidateSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-seed FILE...",
		Short: "Validate seed fixtures without touching the database",
		Long: `Validates seed fixtures against the fixture schema and checks their
references. Does NOT require a database connection.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch fixture errors early:
  rostercraft validate-seed fixtures/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateSeed(cmd, args)
		},
	}
}

func runValidateSeed(cmd *cobra.Command, paths []string) error {
	var failed int
	for _, path := range paths {
		if _, err := seed.LoadFile(path); err != nil {
			failed++
			slog.Error("seed validation failed", "path", path, "error", err)
			cmd.PrintErrf("%s: %v\n", path, err)
			continue
		}
		cmd.Printf("%s: ok\n", path)
	}

	if failed > 0 {
		return oops.Code(seed.CodeInvalidFixture).Errorf("validation failed: %d of %d fixtures invalid", failed, len(paths))
	}
	slog.Info("all fixtures valid", "count", len(paths))
	return nil
}
