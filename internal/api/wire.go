// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package api

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// Role is the JSON form of a tournament role.
type Role struct {
	ID          string `json:"id" validate:"required,len=26"`
	Name        string `json:"name,omitempty"`
	Position    *int   `json:"position" validate:"required,gte=0"`
	IsHidden    bool   `json:"isHidden,omitempty"`
	IsProtected bool   `json:"isProtected,omitempty"`
}

// Permission is the JSON form of a permission grant.
type Permission struct {
	TournamentID    string   `json:"tournamentId"`
	Action          string   `json:"action"`
	TournamentRoles []string `json:"tournamentRoles"`
	StaffMembers    []string `json:"staffMembers"`
}

// RolesResponse wraps a role list.
type RolesResponse struct {
	Roles []Role `json:"roles"`
}

// RoleResponse wraps one role.
type RoleResponse struct {
	Role Role `json:"role"`
}

// PermissionResponse wraps one grant.
type PermissionResponse struct {
	Permission Permission `json:"permission"`
}

// OrderRequest is the body of a role order update. Roles are stored in
// ascending position order.
type OrderRequest struct {
	Roles []Role `json:"roles" validate:"dive"`
}

// PermissionRequest is the body of a grant replacement.
type PermissionRequest struct {
	TournamentRoles []string `json:"tournamentRoles" validate:"dive,len=26"`
	StaffMembers    []string `json:"staffMembers" validate:"dive,len=26"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromRole converts a role to its JSON form.
func FromRole(r tournament.Role) Role {
	pos := r.Position
	return Role{
		ID:          r.ID.String(),
		Name:        r.Name,
		Position:    &pos,
		IsHidden:    r.IsHidden,
		IsProtected: r.IsProtected,
	}
}

// FromRoles converts roles, never returning nil.
func FromRoles(roles []tournament.Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, FromRole(r))
	}
	return out
}

// ToRole parses the JSON form of a role.
func ToRole(r Role) (tournament.Role, error) {
	id, err := parseID("role id", r.ID)
	if err != nil {
		return tournament.Role{}, err
	}
	role := tournament.Role{ID: id, Name: r.Name, IsHidden: r.IsHidden, IsProtected: r.IsProtected}
	if r.Position != nil {
		role.Position = *r.Position
	}
	return role, nil
}

// ToRoles parses a list of roles.
func ToRoles(in []Role) ([]tournament.Role, error) {
	out := make([]tournament.Role, 0, len(in))
	for _, r := range in {
		role, err := ToRole(r)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}

// FromGrant converts a grant to its JSON form. Ids are sorted.
func FromGrant(g tournament.PermissionGrant) Permission {
	return Permission{
		TournamentID:    g.TournamentID.String(),
		Action:          string(g.Action),
		TournamentRoles: idStrings(g.RoleIDs.Sorted()),
		StaffMembers:    idStrings(g.StaffIDs.Sorted()),
	}
}

// ToGrant parses the JSON form of a grant.
func ToGrant(p Permission) (tournament.PermissionGrant, error) {
	tid, err := parseID("tournament id", p.TournamentID)
	if err != nil {
		return tournament.PermissionGrant{}, err
	}
	roles, staff, err := ParseIDSets(p.TournamentRoles, p.StaffMembers)
	if err != nil {
		return tournament.PermissionGrant{}, err
	}
	return tournament.PermissionGrant{
		TournamentID: tid,
		Action:       tournament.Action(p.Action),
		RoleIDs:      roles,
		StaffIDs:     staff,
	}, nil
}

// ParseIDSets parses role and staff id lists into sets.
func ParseIDSets(roleIDs, staffIDs []string) (roles, staff tournament.IDSet, err error) {
	r, err := core.ParseULIDs(roleIDs)
	if err != nil {
		return nil, nil, invalid(err)
	}
	s, err := core.ParseULIDs(staffIDs)
	if err != nil {
		return nil, nil, invalid(err)
	}
	return tournament.NewIDSet(r...), tournament.NewIDSet(s...), nil
}

func idStrings(ids []ulid.ULID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseID(field, s string) (ulid.ULID, error) {
	id, err := core.ParseULID(s)
	if err != nil {
		return ulid.ULID{}, oops.In("api").Code(tournament.CodeInvalidRequest).With("field", field).Wrap(err)
	}
	return id, nil
}

func invalid(err error) error {
	return oops.In("api").Code(tournament.CodeInvalidRequest).Wrap(err)
}

func unknownAction(action tournament.Action) error {
	return oops.In("api").
		Code(tournament.CodeUnknownAction).
		With("action", string(action)).
		Wrap(tournament.ErrUnknownAction)
}
