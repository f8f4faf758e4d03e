// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package tournamenttest provides an in-memory remote tournament service for tests.
package tournamenttest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/rostercraft/rostercraft/internal/tournament"
)

// Operation names passed to Hook.
const (
	OpListRoles         = "ListRoles"
	OpPersistRoleOrder  = "PersistRoleOrder"
	OpDeleteRole        = "DeleteRole"
	OpGetPermission     = "GetPermission"
	OpPersistPermission = "PersistPermission"
)

// Service is an in-memory tournament.Service that records every call.
// Safe for concurrent use.
type Service struct {
	// Hook runs at the start of every call, outside the service lock. A non-nil
	// error fails the call without touching stored state. Tests use it to inject
	// failures or to hold a call in flight.
	Hook func(ctx context.Context, op string) error

	mu      sync.Mutex
	roles   map[ulid.ULID][]tournament.Role
	grants  map[grantKey]tournament.PermissionGrant
	calls   map[string]int
	orders  [][]tournament.Role
	deleted []ulid.ULID
}

type grantKey struct {
	tournamentID ulid.ULID
	action       tournament.Action
}

// NewService creates an empty fake service.
func NewService() *Service {
	return &Service{
		roles:  make(map[ulid.ULID][]tournament.Role),
		grants: make(map[grantKey]tournament.PermissionGrant),
		calls:  make(map[string]int),
	}
}

// SetRoles seeds the stored roles of a tournament.
func (s *Service) SetRoles(tournamentID ulid.ULID, roles ...tournament.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[tournamentID] = slices.Clone(roles)
}

// SetGrant seeds a stored grant.
func (s *Service) SetGrant(grant tournament.PermissionGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey{grant.TournamentID, grant.Action}] = grant.Clone()
}

// StoredRoles returns the stored roles of a tournament sorted by position.
func (s *Service) StoredRoles(tournamentID ulid.ULID) []tournament.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tournament.SortRoles(s.roles[tournamentID])
}

// Calls returns how many times op was invoked, including failed calls.
func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// PersistedOrders returns the payload of every successful PersistRoleOrder call.
func (s *Service) PersistedOrders() [][]tournament.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]tournament.Role, len(s.orders))
	for i, o := range s.orders {
		out[i] = slices.Clone(o)
	}
	return out
}

// DeletedRoles returns the ids passed to successful DeleteRole calls.
func (s *Service) DeletedRoles() []ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deleted)
}

func (s *Service) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.Hook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// ListRoles implements tournament.RoleService.
func (s *Service) ListRoles(ctx context.Context, tournamentID ulid.ULID) ([]tournament.Role, error) {
	if err := s.enter(ctx, OpListRoles); err != nil {
		return nil, err
	}
	return s.StoredRoles(tournamentID), nil
}

// PersistRoleOrder implements tournament.RoleService. Positions are renumbered
// from the payload order, as the real service does.
func (s *Service) PersistRoleOrder(ctx context.Context, tournamentID ulid.ULID, roles []tournament.Role) ([]tournament.Role, error) {
	if err := s.enter(ctx, OpPersistRoleOrder); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := tournament.Renumber(roles)
	s.roles[tournamentID] = stored
	s.orders = append(s.orders, slices.Clone(roles))
	return slices.Clone(stored), nil
}

// DeleteRole implements tournament.RoleService.
func (s *Service) DeleteRole(ctx context.Context, tournamentID, roleID ulid.ULID) (tournament.Role, error) {
	if err := s.enter(ctx, OpDeleteRole); err != nil {
		return tournament.Role{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	roles := s.roles[tournamentID]
	i := slices.IndexFunc(roles, func(r tournament.Role) bool { return r.ID == roleID })
	if i < 0 {
		return tournament.Role{}, tournament.ErrRoleNotFound
	}
	role := roles[i]
	if role.IsProtected {
		return tournament.Role{}, tournament.ErrProtectedRole
	}
	s.roles[tournamentID] = slices.Delete(slices.Clone(roles), i, i+1)
	s.deleted = append(s.deleted, roleID)
	return role, nil
}

// GetPermission implements tournament.PermissionService. Unknown grants are empty.
func (s *Service) GetPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action) (tournament.PermissionGrant, error) {
	if err := s.enter(ctx, OpGetPermission); err != nil {
		return tournament.PermissionGrant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.grants[grantKey{tournamentID, action}]; ok {
		return g.Clone(), nil
	}
	return tournament.EmptyGrant(tournamentID, action), nil
}

// PersistPermission implements tournament.PermissionService. When the tournament
// has stored roles, role ids that do not belong to it are dropped, mimicking
// server-side normalization.
func (s *Service) PersistPermission(ctx context.Context, tournamentID ulid.ULID, action tournament.Action, roleIDs, staffIDs tournament.IDSet) (tournament.PermissionGrant, error) {
	if err := s.enter(ctx, OpPersistPermission); err != nil {
		return tournament.PermissionGrant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := roleIDs.Clone()
	if roles, ok := s.roles[tournamentID]; ok {
		known := tournament.NewIDSet(tournament.RoleIDs(roles)...)
		for id := range kept {
			if !known.Has(id) {
				delete(kept, id)
			}
		}
	}

	g := tournament.PermissionGrant{
		TournamentID: tournamentID,
		Action:       action,
		RoleIDs:      kept,
		StaffIDs:     staffIDs.Clone(),
	}
	s.grants[grantKey{tournamentID, action}] = g
	return g.Clone(), nil
}

var _ tournament.Service = (*Service)(nil)
