// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package store

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/tournament"
)

// GetPermission returns the grant of a gated action. A grant that was never
// written is empty.
func (s *PostgresTournamentService) GetPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action) (tournament.PermissionGrant, error) {
	if err := checkAction(action); err != nil {
		return tournament.PermissionGrant{}, err
	}
	if err := ensureTournament(ctx, s.pool, tournamentID); err != nil {
		return tournament.PermissionGrant{}, err
	}
	return readGrant(ctx, s.pool, tournamentID, action)
}

// PersistPermission replaces the grant of a gated action with exactly the
// given sets. Role ids that are not roles of the tournament are dropped; an
// unknown staff member fails the whole call with ErrStaffMemberNotFound. The
// stored grant is returned.
func (s *PostgresTournamentService) PersistPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action, roleIDs, staffIDs tournament.IDSet) (tournament.PermissionGrant, error) {
	if err := checkAction(action); err != nil {
		return tournament.PermissionGrant{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return tournament.PermissionGrant{}, oops.With("operation", "begin transaction").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := ensureTournament(ctx, tx, tournamentID); err != nil {
		return tournament.PermissionGrant{}, err
	}

	tid, act := tournamentID.String(), string(action)
	if _, err := tx.Exec(ctx,
		`DELETE FROM permission_roles WHERE tournament_id = $1 AND action = $2`, tid, act); err != nil {
		return tournament.PermissionGrant{}, oops.With("operation", "clear role grants").With("action", act).Wrap(err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM permission_staff WHERE tournament_id = $1 AND action = $2`, tid, act); err != nil {
		return tournament.PermissionGrant{}, oops.With("operation", "clear staff grants").With("action", act).Wrap(err)
	}

	if len(roleIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO permission_roles (tournament_id, action, role_id)
			SELECT $1, $2, id FROM tournament_roles
			WHERE tournament_id = $1 AND id = ANY($3::text[])`,
			tid, act, idStrings(roleIDs.Sorted())); err != nil {
			return tournament.PermissionGrant{}, oops.With("operation", "insert role grants").With("action", act).Wrap(err)
		}
	}
	if len(staffIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO permission_staff (tournament_id, action, staff_member_id)
			SELECT $1, $2, unnest($3::text[])`,
			tid, act, idStrings(staffIDs.Sorted())); err != nil {
			if isForeignKeyViolation(err) {
				return tournament.PermissionGrant{}, oops.In("store").
					Code(tournament.CodeStaffMemberNotFound).
					With("tournament_id", tid).
					With("action", act).
					Wrap(tournament.ErrStaffMemberNotFound)
			}
			return tournament.PermissionGrant{}, oops.With("operation", "insert staff grants").With("action", act).Wrap(err)
		}
	}

	grant, err := readGrant(ctx, tx, tournamentID, action)
	if err != nil {
		return tournament.PermissionGrant{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return tournament.PermissionGrant{}, oops.With("operation", "commit transaction").Wrap(err)
	}
	return grant, nil
}

func readGrant(ctx context.Context, q querier, tournamentID ulid.ULID, action tournament.Action) (tournament.PermissionGrant, error) {
	grant := tournament.EmptyGrant(tournamentID, action)
	tid, act := tournamentID.String(), string(action)

	rows, err := q.Query(ctx,
		`SELECT role_id FROM permission_roles WHERE tournament_id = $1 AND action = $2`, tid, act)
	if err != nil {
		return tournament.PermissionGrant{}, oops.With("operation", "read role grants").With("action", act).Wrap(err)
	}
	roleIDs, err := scanIDs(rows, "role_id")
	if err != nil {
		return tournament.PermissionGrant{}, err
	}

	rows, err = q.Query(ctx,
		`SELECT staff_member_id FROM permission_staff WHERE tournament_id = $1 AND action = $2`, tid, act)
	if err != nil {
		return tournament.PermissionGrant{}, oops.With("operation", "read staff grants").With("action", act).Wrap(err)
	}
	staffIDs, err := scanIDs(rows, "staff_member_id")
	if err != nil {
		return tournament.PermissionGrant{}, err
	}

	grant.RoleIDs = grant.RoleIDs.Add(roleIDs...)
	grant.StaffIDs = grant.StaffIDs.Add(staffIDs...)
	return grant, nil
}
