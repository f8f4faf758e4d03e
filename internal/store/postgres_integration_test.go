// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

//go:build integration

package store_test

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/store"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

func positions(roles []tournament.Role) []int {
	out := make([]int, len(roles))
	for i, r := range roles {
		out[i] = r.Position
	}
	return out
}

var _ = Describe("PostgresTournamentService", func() {
	var (
		ctx   context.Context
		svc   *store.PostgresTournamentService
		tid   ulid.ULID
		roles []tournament.Role
		staff tournament.StaffMember
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = store.NewPostgresTournamentService(testPool)

		t, err := svc.CreateTournament(ctx, tournament.Tournament{Name: "Spring Cup"})
		Expect(err).NotTo(HaveOccurred())
		tid = t.ID

		roles = nil
		for _, r := range []tournament.Role{
			{Name: "owner", IsProtected: true},
			{Name: "referee"},
			{Name: "caster", IsHidden: true},
		} {
			created, err := svc.CreateRole(ctx, tid, r)
			Expect(err).NotTo(HaveOccurred())
			roles = append(roles, created)
		}
		staff, err = svc.CreateStaffMember(ctx, tid, tournament.StaffMember{Name: "Ana"})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("roles", func() {
		It("appends created roles at the end", func() {
			Expect(positions(roles)).To(Equal([]int{0, 1, 2}))
		})

		It("persists a new order with contiguous positions", func() {
			saved, err := svc.PersistRoleOrder(ctx, tid, []tournament.Role{roles[2], roles[0], roles[1]})
			Expect(err).NotTo(HaveOccurred())
			Expect(positions(saved)).To(Equal([]int{0, 1, 2}))
			Expect(tournament.RoleIDs(saved)).To(Equal([]ulid.ULID{roles[2].ID, roles[0].ID, roles[1].ID}))

			listed, err := svc.ListRoles(ctx, tid)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(Equal(saved))
		})

		It("rejects an order that does not name every role", func() {
			_, err := svc.PersistRoleOrder(ctx, tid, roles[:2])
			Expect(err).To(MatchError(tournament.ErrRoleOrderConflict))

			_, err = svc.PersistRoleOrder(ctx, tid, []tournament.Role{roles[0], roles[0], roles[1]})
			Expect(err).To(MatchError(tournament.ErrRoleOrderConflict))
		})

		It("keeps positions consistent under concurrent reorders", func() {
			var wg sync.WaitGroup
			for i := range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					order := []tournament.Role{roles[i%3], roles[(i+1)%3], roles[(i+2)%3]}
					_, err := svc.PersistRoleOrder(ctx, tid, order)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			listed, err := svc.ListRoles(ctx, tid)
			Expect(err).NotTo(HaveOccurred())
			Expect(positions(listed)).To(Equal([]int{0, 1, 2}))
		})

		It("deletes a role and closes the gap", func() {
			deleted, err := svc.DeleteRole(ctx, tid, roles[1].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted.Name).To(Equal("referee"))

			listed, err := svc.ListRoles(ctx, tid)
			Expect(err).NotTo(HaveOccurred())
			Expect(positions(listed)).To(Equal([]int{0, 1}))
		})

		It("refuses to delete protected roles", func() {
			_, err := svc.DeleteRole(ctx, tid, roles[0].ID)
			Expect(err).To(MatchError(tournament.ErrProtectedRole))
		})

		It("reports unknown roles and tournaments", func() {
			_, err := svc.DeleteRole(ctx, tid, core.NewULID())
			Expect(err).To(MatchError(tournament.ErrRoleNotFound))

			_, err = svc.ListRoles(ctx, core.NewULID())
			Expect(err).To(MatchError(tournament.ErrTournamentNotFound))
		})
	})

	Describe("permissions", func() {
		const action = tournament.ActionManageParticipants

		It("starts empty", func() {
			g, err := svc.GetPermission(ctx, tid, action)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.RoleIDs).To(BeEmpty())
			Expect(g.StaffIDs).To(BeEmpty())
		})

		It("replaces rather than merges", func() {
			_, err := svc.PersistPermission(ctx, tid, action,
				tournament.NewIDSet(roles[0].ID, roles[1].ID), tournament.NewIDSet(staff.ID))
			Expect(err).NotTo(HaveOccurred())

			g, err := svc.PersistPermission(ctx, tid, action, tournament.NewIDSet(roles[2].ID), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.RoleIDs.Equal(tournament.NewIDSet(roles[2].ID))).To(BeTrue())
			Expect(g.StaffIDs).To(BeEmpty())

			read, err := svc.GetPermission(ctx, tid, action)
			Expect(err).NotTo(HaveOccurred())
			Expect(read).To(Equal(g))
		})

		It("drops roles of other tournaments", func() {
			other, err := svc.CreateTournament(ctx, tournament.Tournament{Name: "Other"})
			Expect(err).NotTo(HaveOccurred())
			foreign, err := svc.CreateRole(ctx, other.ID, tournament.Role{Name: "foreign"})
			Expect(err).NotTo(HaveOccurred())

			g, err := svc.PersistPermission(ctx, tid, action, tournament.NewIDSet(roles[1].ID, foreign.ID), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.RoleIDs.Equal(tournament.NewIDSet(roles[1].ID))).To(BeTrue())
		})

		It("rejects unknown staff members and keeps the old grant", func() {
			_, err := svc.PersistPermission(ctx, tid, action, nil, tournament.NewIDSet(staff.ID))
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.PersistPermission(ctx, tid, action, nil, tournament.NewIDSet(core.NewULID()))
			Expect(err).To(MatchError(tournament.ErrStaffMemberNotFound))

			g, err := svc.GetPermission(ctx, tid, action)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.StaffIDs.Has(staff.ID)).To(BeTrue())
		})

		It("removes a deleted role from grants", func() {
			_, err := svc.PersistPermission(ctx, tid, action, tournament.NewIDSet(roles[1].ID), nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.DeleteRole(ctx, tid, roles[1].ID)
			Expect(err).NotTo(HaveOccurred())

			g, err := svc.GetPermission(ctx, tid, action)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.RoleIDs).To(BeEmpty())
		})
	})

	Describe("transactions", func() {
		It("rolls back everything when the function fails", func() {
			var created tournament.Tournament
			err := svc.InTransaction(ctx, func(tx *store.PostgresTournamentService) error {
				var err error
				created, err = tx.CreateTournament(ctx, tournament.Tournament{Name: "Ghost"})
				Expect(err).NotTo(HaveOccurred())
				_, err = tx.CreateStaffMember(ctx, created.ID, tournament.StaffMember{Name: "Bo"})
				Expect(err).NotTo(HaveOccurred())
				_, err = tx.PersistPermission(ctx, created.ID, tournament.ActionManageRoles, nil, tournament.NewIDSet(core.NewULID()))
				return err
			})
			Expect(err).To(MatchError(tournament.ErrStaffMemberNotFound))

			_, err = svc.GetTournament(ctx, created.ID)
			Expect(err).To(MatchError(tournament.ErrTournamentNotFound))
		})

		It("reports duplicate tournaments", func() {
			_, err := svc.CreateTournament(ctx, tournament.Tournament{ID: tid, Name: "again"})
			Expect(err).To(MatchError(tournament.ErrTournamentExists))
		})
	})
})

var _ = Describe("Migrator", Ordered, func() {
	It("walks the schema down and up again", func() {
		// a separate database keeps the shared schema intact
		ctx := context.Background()
		_, err := testPool.Exec(ctx, `CREATE DATABASE migrate_cycle`)
		Expect(err).NotTo(HaveOccurred())

		url, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
		url = replaceDatabase(url, "migrate_cycle")

		m, err := store.NewMigrator(url)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(m.Close)

		Expect(m.Up()).To(Succeed())
		version, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())

		Expect(m.Steps(-1)).To(Succeed())
		pending, err := m.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal([]uint{2}))

		Expect(m.Down()).To(Succeed())
		version, _, err = m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})
})
