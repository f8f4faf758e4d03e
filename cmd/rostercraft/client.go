// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rostercraft/rostercraft/internal/config"
	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/remote"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// newService is replaced in tests.
var newService = func(cfg *config.Config) (tournament.Service, error) {
	return remote.New(cfg.Remote.URL, remote.WithTimeout(cfg.Remote.Timeout))
}

// clientContext is what every client command starts from.
type clientContext struct {
	cfg          *config.Config
	service      tournament.Service
	tournamentID ulid.ULID
}

func addTournamentFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("tournament", "t", "", "tournament id (ULID)")
	_ = cmd.MarkPersistentFlagRequired("tournament")
}

func newClientContext(cmd *cobra.Command) (*clientContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	raw, err := cmd.Flags().GetString("tournament")
	if err != nil {
		return nil, err
	}
	tid, err := core.ParseULID(raw)
	if err != nil {
		return nil, oops.Code(tournament.CodeInvalidRequest).With("flag", "tournament").Wrap(err)
	}
	svc, err := newService(cfg)
	if err != nil {
		return nil, err
	}
	return &clientContext{cfg: cfg, service: svc, tournamentID: tid}, nil
}

func parseIDSet(raw []string) (tournament.IDSet, error) {
	ids, err := core.ParseULIDs(raw)
	if err != nil {
		return nil, oops.Code(tournament.CodeInvalidRequest).Wrap(err)
	}
	return tournament.NewIDSet(ids...), nil
}

func parseAction(raw string) (tournament.Action, error) {
	a := tournament.Action(raw)
	if !a.Valid() {
		return "", oops.Code(tournament.CodeUnknownAction).
			With("action", raw).
			With("known", tournament.Actions()).
			Wrap(tournament.ErrUnknownAction)
	}
	return a, nil
}
