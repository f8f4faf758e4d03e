// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package tournament

import (
	"maps"
	"slices"

	"github.com/oklog/ulid/v2"
)

// Action names a permission-gated tournament action.
type Action string

// Gated actions.
const (
	ActionManageParticipants Action = "manage_participants"
	ActionManageRoles        Action = "manage_roles"
	ActionManageMatches      Action = "manage_matches"
)

// Actions lists every known gated action.
func Actions() []Action {
	return []Action{ActionManageParticipants, ActionManageRoles, ActionManageMatches}
}

// Valid reports whether a is a known gated action.
func (a Action) Valid() bool {
	return slices.Contains(Actions(), a)
}

// IDSet is an unordered set of identifiers.
type IDSet map[ulid.ULID]struct{}

// NewIDSet builds a set from ids; duplicates collapse.
func NewIDSet(ids ...ulid.ULID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id ulid.ULID) bool {
	_, ok := s[id]
	return ok
}

// Intersects reports whether the two sets share at least one id.
func (s IDSet) Intersects(other IDSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// Add returns a copy of s with ids added.
func (s IDSet) Add(ids ...ulid.ULID) IDSet {
	out := s.Clone()
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// Remove returns a copy of s without ids.
func (s IDSet) Remove(ids ...ulid.ULID) IDSet {
	out := s.Clone()
	for _, id := range ids {
		delete(out, id)
	}
	return out
}

// Clone copies the set. A nil set clones to an empty one.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	maps.Copy(out, s)
	return out
}

// Sorted returns the members in ascending id order.
func (s IDSet) Sorted() []ulid.ULID {
	ids := slices.Collect(maps.Keys(s))
	slices.SortFunc(ids, func(a, b ulid.ULID) int { return a.Compare(b) })
	return ids
}

// Equal reports whether both sets hold the same ids.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// PermissionGrant is the pair of role and staff sets authorized for one gated
// action of one tournament.
type PermissionGrant struct {
	TournamentID ulid.ULID
	Action       Action
	RoleIDs      IDSet
	StaffIDs     IDSet
}

// EmptyGrant is the grant every tournament starts with.
func EmptyGrant(tournamentID ulid.ULID, action Action) PermissionGrant {
	return PermissionGrant{
		TournamentID: tournamentID,
		Action:       action,
		RoleIDs:      IDSet{},
		StaffIDs:     IDSet{},
	}
}

// Clone deep copies the grant.
func (g PermissionGrant) Clone() PermissionGrant {
	g.RoleIDs = g.RoleIDs.Clone()
	g.StaffIDs = g.StaffIDs.Clone()
	return g
}

// Actor is the identity an authorization query is evaluated for.
type Actor struct {
	StaffMemberID ulid.ULID
	RoleIDs       IDSet
}

// Authorizes reports whether the grant lets actor perform its action. Staff and
// role grants are independent sources: either one is sufficient.
func (g PermissionGrant) Authorizes(actor Actor) bool {
	if actor.StaffMemberID.Compare(ulid.ULID{}) != 0 && g.StaffIDs.Has(actor.StaffMemberID) {
		return true
	}
	return g.RoleIDs.Intersects(actor.RoleIDs)
}
