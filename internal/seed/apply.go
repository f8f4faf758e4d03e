// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package seed

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// Writer is the store surface a fixture is written through.
type Writer interface {
	GetTournament(ctx context.Context, id ulid.ULID) (tournament.Tournament, error)
	CreateTournament(ctx context.Context, t tournament.Tournament) (tournament.Tournament, error)
	CreateRole(ctx context.Context, tournamentID ulid.ULID, role tournament.Role) (tournament.Role, error)
	CreateStaffMember(ctx context.Context, tournamentID ulid.ULID, m tournament.StaffMember) (tournament.StaffMember, error)
	PersistPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action, roleIDs, staffIDs tournament.IDSet) (tournament.PermissionGrant, error)
}

// Result describes what Apply wrote.
type Result struct {
	Tournament tournament.Tournament
	Roles      []tournament.Role
	Staff      []tournament.StaffMember
	Grants     []tournament.PermissionGrant
	// Skipped is set when the fixture's tournament already existed and
	// nothing was written.
	Skipped bool
}

// Apply writes a validated fixture. Callers wanting all-or-nothing behaviour
// run it inside a store transaction.
//
// A fixture with a fixed tournament id is applied at most once: when that
// tournament already exists Apply returns a Result with Skipped set and
// writes nothing.
func Apply(ctx context.Context, w Writer, f *Fixture) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	tid := parseOptionalID(f.Tournament.ID)
	if !core.IsZero(tid) {
		existing, err := w.GetTournament(ctx, tid)
		switch {
		case err == nil:
			slog.Info("tournament already seeded, skipping",
				"tournament_id", tid.String(),
				"name", existing.Name)
			if existing.Name != f.Tournament.Name {
				slog.Warn("seed tournament name mismatch",
					"tournament_id", tid.String(),
					"expected", f.Tournament.Name,
					"actual", existing.Name)
			}
			res.Tournament = existing
			res.Skipped = true
			return res, nil
		case !errors.Is(err, tournament.ErrTournamentNotFound):
			return nil, oops.Code("SEED_FAILED").With("operation", "check tournament").Wrap(err)
		}
	}

	t, err := w.CreateTournament(ctx, tournament.Tournament{ID: tid, Name: f.Tournament.Name})
	if err != nil {
		return nil, oops.Code("SEED_FAILED").With("operation", "create tournament").Wrap(err)
	}
	res.Tournament = t

	roleIDs := make(map[string]ulid.ULID, len(f.Roles))
	for _, spec := range f.Roles {
		role, err := w.CreateRole(ctx, t.ID, tournament.Role{
			ID:          parseOptionalID(spec.ID),
			Name:        spec.Name,
			IsHidden:    spec.Hidden,
			IsProtected: spec.Protected,
		})
		if err != nil {
			return nil, oops.Code("SEED_FAILED").With("operation", "create role").With("key", spec.Key).Wrap(err)
		}
		roleIDs[spec.Key] = role.ID
		res.Roles = append(res.Roles, role)
	}

	staffIDs := make(map[string]ulid.ULID, len(f.Staff))
	for _, spec := range f.Staff {
		m, err := w.CreateStaffMember(ctx, t.ID, tournament.StaffMember{
			ID:   parseOptionalID(spec.ID),
			Name: spec.Name,
		})
		if err != nil {
			return nil, oops.Code("SEED_FAILED").With("operation", "create staff member").With("key", spec.Key).Wrap(err)
		}
		staffIDs[spec.Key] = m.ID
		res.Staff = append(res.Staff, m)
	}

	for _, action := range f.Actions() {
		g := f.Permissions[action]
		grant, err := w.PersistPermission(ctx, t.ID, action, resolve(g.Roles, roleIDs), resolve(g.Staff, staffIDs))
		if err != nil {
			return nil, oops.Code("SEED_FAILED").With("operation", "persist permission").With("action", string(action)).Wrap(err)
		}
		res.Grants = append(res.Grants, grant)
	}

	slog.Info("tournament seeded",
		"tournament_id", t.ID.String(),
		"roles", len(res.Roles),
		"staff", len(res.Staff),
		"grants", len(res.Grants))
	return res, nil
}

func resolve(keys []string, ids map[string]ulid.ULID) tournament.IDSet {
	set := make(tournament.IDSet, len(keys))
	for _, key := range keys {
		set[ids[key]] = struct{}{}
	}
	return set
}
