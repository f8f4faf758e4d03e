// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package tournament

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// RoleService is the part of the remote service the role list needs.
type RoleService interface {
	ListRoles(ctx context.Context, tournamentID ulid.ULID) ([]Role, error)
	// PersistRoleOrder replaces the order of all roles and returns the canonical
	// post-save roles.
	PersistRoleOrder(ctx context.Context, tournamentID ulid.ULID, roles []Role) ([]Role, error)
	// DeleteRole removes a role; it fails for protected roles.
	DeleteRole(ctx context.Context, tournamentID, roleID ulid.ULID) (Role, error)
}

// PermissionService is the part of the remote service the resolvers need.
type PermissionService interface {
	GetPermission(ctx context.Context, tournamentID ulid.ULID, action Action) (PermissionGrant, error)
	// PersistPermission replaces both grant sets and returns the stored grant.
	PersistPermission(ctx context.Context, tournamentID ulid.ULID, action Action, roleIDs, staffIDs IDSet) (PermissionGrant, error)
}

// Service is the remote tournament service contract.
type Service interface {
	RoleService
	PermissionService
}
