// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package access resolves who may perform a permission-gated tournament action.
//
// A Resolver holds the local copy of one PermissionGrant. Authorization checks
// are answered from that copy without any I/O; the grant only changes through
// Load or a successful Replace.
package access

import (
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/tournament"
)

// Authorizer answers authorization queries for one gated action.
type Authorizer interface {
	// IsAuthorized reports whether actor may perform the action. Deny by default.
	IsAuthorized(actor tournament.Actor) bool
}

// Require returns an ErrForbidden error when a does not authorize actor.
func Require(a Authorizer, actor tournament.Actor, action tournament.Action) error {
	if a.IsAuthorized(actor) {
		return nil
	}
	return oops.In("access").
		Code(tournament.CodeForbidden).
		With("action", string(action)).
		With("staff_member_id", actor.StaffMemberID.String()).
		Wrap(tournament.ErrForbidden)
}
