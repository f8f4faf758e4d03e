// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

const selectRoles = `
	SELECT id, name, position, is_hidden, is_protected
	FROM tournament_roles
	WHERE tournament_id = $1
	ORDER BY position, id`

// ListRoles returns the roles of a tournament ordered by position.
func (s *PostgresTournamentService) ListRoles(ctx context.Context, tournamentID ulid.ULID) ([]tournament.Role, error) {
	roles, err := listRoles(ctx, s.pool, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		if err := ensureTournament(ctx, s.pool, tournamentID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func listRoles(ctx context.Context, q querier, tournamentID ulid.ULID) ([]tournament.Role, error) {
	rows, err := q.Query(ctx, selectRoles, tournamentID.String())
	if err != nil {
		return nil, oops.With("operation", "list roles").With("tournament_id", tournamentID.String()).Wrap(err)
	}
	defer rows.Close()

	roles := []tournament.Role{}
	for rows.Next() {
		var r tournament.Role
		var idStr string
		if err := rows.Scan(&idStr, &r.Name, &r.Position, &r.IsHidden, &r.IsProtected); err != nil {
			return nil, oops.With("operation", "scan role row").Wrap(err)
		}
		r.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.With("operation", "parse role id").With("role_id", idStr).Wrap(err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate roles").Wrap(err)
	}
	return roles, nil
}

// PersistRoleOrder stores the order of roles: each role's position becomes its
// index in the slice. Submitted positions and other fields are ignored. The
// slice must contain every role of the tournament exactly once, otherwise
// ErrRoleOrderConflict is returned and nothing changes.
func (s *PostgresTournamentService) PersistRoleOrder(ctx context.Context, tournamentID ulid.ULID, roles []tournament.Role) ([]tournament.Role, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, oops.With("operation", "begin transaction").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := ensureTournament(ctx, tx, tournamentID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT id FROM tournament_roles WHERE tournament_id = $1 FOR UPDATE`,
		tournamentID.String())
	if err != nil {
		return nil, oops.With("operation", "lock roles").With("tournament_id", tournamentID.String()).Wrap(err)
	}
	current, err := scanIDs(rows, "role_id")
	if err != nil {
		return nil, err
	}

	ordered := tournament.RoleIDs(roles)
	if !sameMembers(ordered, current) {
		return nil, oops.In("store").
			Code(tournament.CodeRoleOrderConflict).
			With("tournament_id", tournamentID.String()).
			With("submitted", len(ordered)).
			With("stored", len(current)).
			Wrap(tournament.ErrRoleOrderConflict)
	}

	if len(ordered) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE tournament_roles AS r
			SET position = o.ord - 1
			FROM unnest($2::text[]) WITH ORDINALITY AS o(id, ord)
			WHERE r.tournament_id = $1 AND r.id = o.id`,
			tournamentID.String(), idStrings(ordered))
		if err != nil {
			return nil, oops.With("operation", "update role positions").With("tournament_id", tournamentID.String()).Wrap(err)
		}
	}

	saved, err := listRoles(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, oops.In("store").
				Code(tournament.CodeRoleOrderConflict).
				With("tournament_id", tournamentID.String()).
				Wrap(tournament.ErrRoleOrderConflict)
		}
		return nil, oops.With("operation", "commit transaction").Wrap(err)
	}

	slog.Debug("role order persisted", "tournament_id", tournamentID.String(), "roles", len(saved))
	return saved, nil
}

// sameMembers reports whether ordered names every id of current exactly once.
func sameMembers(ordered, current []ulid.ULID) bool {
	if len(ordered) != len(current) {
		return false
	}
	want := tournament.NewIDSet(current...)
	seen := make(tournament.IDSet, len(ordered))
	for _, id := range ordered {
		if !want.Has(id) || seen.Has(id) {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

// DeleteRole removes an unprotected role and closes the gap it leaves in the
// positions. Grants referencing the role are removed with it.
func (s *PostgresTournamentService) DeleteRole(ctx context.Context, tournamentID, roleID ulid.ULID) (tournament.Role, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return tournament.Role{}, oops.With("operation", "begin transaction").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	role := tournament.Role{ID: roleID}
	err = tx.QueryRow(ctx, `
		SELECT name, position, is_hidden, is_protected
		FROM tournament_roles
		WHERE tournament_id = $1 AND id = $2
		FOR UPDATE`,
		tournamentID.String(), roleID.String(),
	).Scan(&role.Name, &role.Position, &role.IsHidden, &role.IsProtected)
	if errors.Is(err, pgx.ErrNoRows) {
		return tournament.Role{}, oops.In("store").
			Code(tournament.CodeRoleNotFound).
			With("tournament_id", tournamentID.String()).
			With("role_id", roleID.String()).
			Wrap(tournament.ErrRoleNotFound)
	}
	if err != nil {
		return tournament.Role{}, oops.With("operation", "get role").With("role_id", roleID.String()).Wrap(err)
	}
	if role.IsProtected {
		return tournament.Role{}, oops.In("store").
			Code(tournament.CodeProtectedRole).
			With("role_id", roleID.String()).
			With("role_name", role.Name).
			Wrap(tournament.ErrProtectedRole)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM tournament_roles WHERE tournament_id = $1 AND id = $2`,
		tournamentID.String(), roleID.String()); err != nil {
		return tournament.Role{}, oops.With("operation", "delete role").With("role_id", roleID.String()).Wrap(err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE tournament_roles SET position = position - 1 WHERE tournament_id = $1 AND position > $2`,
		tournamentID.String(), role.Position); err != nil {
		return tournament.Role{}, oops.With("operation", "close position gap").With("role_id", roleID.String()).Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return tournament.Role{}, oops.With("operation", "commit transaction").Wrap(err)
	}
	return role, nil
}

// CreateRole appends a role after the tournament's last one. A zero ID is
// replaced by a new ULID; Position is ignored and set in the returned role.
func (s *PostgresTournamentService) CreateRole(ctx context.Context, tournamentID ulid.ULID, role tournament.Role) (tournament.Role, error) {
	if core.IsZero(role.ID) {
		role.ID = core.NewULID()
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO tournament_roles (id, tournament_id, name, position, is_hidden, is_protected)
		SELECT $1, $2, $3, COALESCE(MAX(position) + 1, 0), $4, $5
		FROM tournament_roles WHERE tournament_id = $2
		RETURNING position`,
		role.ID.String(), tournamentID.String(), role.Name, role.IsHidden, role.IsProtected,
	).Scan(&role.Position)
	if err != nil {
		if isForeignKeyViolation(err) {
			return tournament.Role{}, oops.In("store").
				Code(tournament.CodeTournamentNotFound).
				With("tournament_id", tournamentID.String()).
				Wrap(tournament.ErrTournamentNotFound)
		}
		return tournament.Role{}, oops.With("operation", "create role").
			With("tournament_id", tournamentID.String()).
			With("role_name", role.Name).
			Wrap(err)
	}
	return role, nil
}
