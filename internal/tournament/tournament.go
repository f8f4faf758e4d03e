// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package tournament

import "github.com/oklog/ulid/v2"

// Tournament is a community tournament. Roles, staff members and grants all
// belong to exactly one tournament.
type Tournament struct {
	ID   ulid.ULID
	Name string
}

// StaffMember is a person helping to run a tournament. Staff members can be
// granted permissions directly, independently of their roles.
type StaffMember struct {
	ID   ulid.ULID
	Name string
}
