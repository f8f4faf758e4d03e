// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package store

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// CreateTournament inserts a tournament. A zero ID is replaced by a new ULID.
// Creating an id twice fails with ErrTournamentExists.
func (s *PostgresTournamentService) CreateTournament(ctx context.Context, t tournament.Tournament) (tournament.Tournament, error) {
	if core.IsZero(t.ID) {
		t.ID = core.NewULID()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tournaments (id, name) VALUES ($1, $2)`,
		t.ID.String(), t.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return tournament.Tournament{}, oops.In("store").
				Code(tournament.CodeTournamentExists).
				With("tournament_id", t.ID.String()).
				Wrap(tournament.ErrTournamentExists)
		}
		return tournament.Tournament{}, oops.With("operation", "create tournament").With("tournament_id", t.ID.String()).Wrap(err)
	}
	return t, nil
}

// GetTournament returns a tournament by id.
func (s *PostgresTournamentService) GetTournament(ctx context.Context, id ulid.ULID) (tournament.Tournament, error) {
	t := tournament.Tournament{ID: id}
	if err := ensureTournament(ctx, s.pool, id); err != nil {
		return tournament.Tournament{}, err
	}
	if err := s.pool.QueryRow(ctx, `SELECT name FROM tournaments WHERE id = $1`, id.String()).Scan(&t.Name); err != nil {
		return tournament.Tournament{}, oops.With("operation", "get tournament").With("tournament_id", id.String()).Wrap(err)
	}
	return t, nil
}

// CreateStaffMember adds a staff member to a tournament. A zero ID is replaced
// by a new ULID.
func (s *PostgresTournamentService) CreateStaffMember(ctx context.Context, tournamentID ulid.ULID, m tournament.StaffMember) (tournament.StaffMember, error) {
	if core.IsZero(m.ID) {
		m.ID = core.NewULID()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO staff_members (id, tournament_id, name) VALUES ($1, $2, $3)`,
		m.ID.String(), tournamentID.String(), m.Name)
	if err != nil {
		if isForeignKeyViolation(err) {
			return tournament.StaffMember{}, oops.In("store").
				Code(tournament.CodeTournamentNotFound).
				With("tournament_id", tournamentID.String()).
				Wrap(tournament.ErrTournamentNotFound)
		}
		return tournament.StaffMember{}, oops.With("operation", "create staff member").
			With("tournament_id", tournamentID.String()).
			With("staff_member_id", m.ID.String()).
			Wrap(err)
	}
	return m, nil
}
