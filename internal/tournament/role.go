// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package tournament defines the tournament roles, permission grants and the
// contract of the remote tournament service.
package tournament

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// Role is a staff role inside one tournament.
type Role struct {
	ID          ulid.ULID
	Name        string
	Position    int
	IsHidden    bool
	IsProtected bool
}

// CompareRoles orders roles by position, then by id.
func CompareRoles(a, b Role) int {
	if a.Position != b.Position {
		if a.Position < b.Position {
			return -1
		}
		return 1
	}
	return a.ID.Compare(b.ID)
}

// SortRoles returns a sorted copy of roles.
func SortRoles(roles []Role) []Role {
	out := slices.Clone(roles)
	slices.SortStableFunc(out, CompareRoles)
	return out
}

// Renumber returns a copy of roles with Position set to the sequence index.
func Renumber(roles []Role) []Role {
	out := slices.Clone(roles)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// RoleIDs returns the ids of roles in sequence order.
func RoleIDs(roles []Role) []ulid.ULID {
	ids := make([]ulid.ULID, len(roles))
	for i, r := range roles {
		ids[i] = r.ID
	}
	return ids
}
