// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

//go:build integration

package api_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/remote"
	"github.com/rostercraft/rostercraft/internal/seed"
	"github.com/rostercraft/rostercraft/internal/session"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

func roleNames(roles []tournament.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Name
	}
	return out
}

var _ = Describe("Tournament roster over HTTP", func() {
	var (
		ctx context.Context
		res *seed.Result
		s   *session.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		res = seedFixture(ctx)
		var err error
		s, err = session.Open(ctx, env.client, res.Tournament.ID)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("role order", func() {
		It("loads roles in position order", func() {
			Expect(roleNames(s.Roles().Roles())).To(Equal([]string{"Admin", "Referee", "Streamer"}))
		})

		It("persists a reorder with one save and survives a reload", func() {
			Expect(s.Roles().Swap(0, 2)).To(Succeed())
			Expect(s.Roles().MoveUp(2)).To(Succeed())

			saved, err := s.Roles().Save(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(roleNames(saved)).To(Equal([]string{"Streamer", "Admin", "Referee"}))
			for i, r := range saved {
				Expect(r.Position).To(Equal(i))
			}

			Expect(s.Reload(ctx)).To(Succeed())
			Expect(roleNames(s.Roles().Roles())).To(Equal([]string{"Streamer", "Admin", "Referee"}))
			Expect(s.Roles().Dirty()).To(BeFalse())
		})
	})

	Describe("role removal", func() {
		It("deletes an unprotected role and drops it from grants", func() {
			referee := res.Roles[1]
			Expect(s.Roles().Remove(ctx, referee.ID)).To(Succeed())

			stored, err := env.service.ListRoles(ctx, res.Tournament.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(roleNames(stored)).To(Equal([]string{"Admin", "Streamer"}))

			grant, err := env.client.GetPermission(ctx, res.Tournament.ID, tournament.ActionManageMatches)
			Expect(err).NotTo(HaveOccurred())
			Expect(grant.RoleIDs).To(BeEmpty())
		})

		It("refuses a protected role on the server too", func() {
			_, err := env.client.DeleteRole(ctx, res.Tournament.ID, res.Roles[0].ID)
			Expect(err).To(MatchError(tournament.ErrProtectedRole))
			Expect(remote.IsStatus(err, http.StatusUnprocessableEntity)).To(BeTrue())
		})
	})

	Describe("permission grants", func() {
		It("authorizes from the seeded grants", func() {
			alice := res.Staff[0].ID
			admin := res.Roles[0].ID

			Expect(s.Authorize(tournament.Actor{StaffMemberID: alice}, tournament.ActionManageParticipants)).To(Succeed())
			Expect(s.Authorize(tournament.Actor{RoleIDs: tournament.NewIDSet(admin)}, tournament.ActionManageRoles)).To(Succeed())
			Expect(s.Authorize(tournament.Actor{StaffMemberID: alice}, tournament.ActionManageMatches)).
				To(MatchError(tournament.ErrForbidden))
		})

		It("replaces a grant as a whole and drops unknown roles", func() {
			resolver, err := s.Permissions(tournament.ActionManageRoles)
			Expect(err).NotTo(HaveOccurred())
			bob := res.Staff[1].ID
			streamer := res.Roles[2].ID

			g, err := resolver.Replace(ctx, tournament.NewIDSet(streamer, core.NewULID()), tournament.NewIDSet(bob))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.RoleIDs.Equal(tournament.NewIDSet(streamer))).To(BeTrue())
			Expect(g.StaffIDs.Equal(tournament.NewIDSet(bob))).To(BeTrue())

			stored, err := env.service.GetPermission(ctx, res.Tournament.ID, tournament.ActionManageRoles)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.RoleIDs.Equal(g.RoleIDs)).To(BeTrue())
			Expect(resolver.IsAuthorized(tournament.Actor{StaffMemberID: bob})).To(BeTrue())
		})

		It("rejects an unknown staff member and keeps the local grant", func() {
			resolver, err := s.Permissions(tournament.ActionManageRoles)
			Expect(err).NotTo(HaveOccurred())
			before := resolver.Grant()

			_, err = resolver.Replace(ctx, nil, tournament.NewIDSet(core.NewULID()))
			Expect(err).To(MatchError(tournament.ErrStaffMemberNotFound))
			Expect(tournament.IsRemote(err)).To(BeTrue())
			after := resolver.Grant()
			Expect(after.RoleIDs.Equal(before.RoleIDs)).To(BeTrue())
			Expect(after.StaffIDs.Equal(before.StaffIDs)).To(BeTrue())
		})

		It("reports an unknown tournament", func() {
			_, err := env.client.GetPermission(ctx, core.NewULID(), tournament.ActionManageRoles)
			Expect(err).To(MatchError(tournament.ErrTournamentNotFound))
		})
	})
})
