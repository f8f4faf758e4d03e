// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

//go:build integration

package cli_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const springCupID = "01JAR8Q3M9ZKX4D2VNBT6WEYC5"

var _ = Describe("Seed Command", func() {
	var (
		ctx     context.Context
		fixture string
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
		var err error
		fixture, err = filepath.Abs("../../../internal/seed/testdata/spring-cup.yaml")
		Expect(err).NotTo(HaveOccurred())
	})

	It("migrates and creates the tournament with its roles and grants", func() {
		output, err := rostercraft(ctx, "seed", "--migrate", fixture)
		Expect(err).NotTo(HaveOccurred(), "seed command failed: %s", output)
		Expect(output).To(ContainSubstring(`Created tournament "Spring Cup"`))
		Expect(output).To(ContainSubstring("3 roles, 2 staff members, 3 grants"))

		var name string
		err = env.pool.QueryRow(ctx, "SELECT name FROM tournaments WHERE id = $1", springCupID).Scan(&name)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("Spring Cup"))

		rows, err := env.pool.Query(ctx,
			"SELECT name FROM tournament_roles WHERE tournament_id = $1 ORDER BY position", springCupID)
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for rows.Next() {
			var n string
			Expect(rows.Scan(&n)).To(Succeed())
			names = append(names, n)
		}
		Expect(rows.Err()).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"Admin", "Referee", "Streamer"}))

		var protected bool
		err = env.pool.QueryRow(ctx,
			"SELECT is_protected FROM tournament_roles WHERE tournament_id = $1 AND name = 'Admin'", springCupID).Scan(&protected)
		Expect(err).NotTo(HaveOccurred())
		Expect(protected).To(BeTrue())

		var grants int
		err = env.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM permission_roles WHERE tournament_id = $1", springCupID).Scan(&grants)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(Equal(4))
	})

	It("is idempotent (running twice succeeds without duplicates)", func() {
		output1, err := rostercraft(ctx, "seed", "--migrate", fixture)
		Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", output1)

		output2, err := rostercraft(ctx, "seed", fixture)
		Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output2)
		Expect(output2).To(ContainSubstring("already exists, skipping seed"))

		var count int
		err = env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tournament_roles WHERE tournament_id = $1", springCupID).Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(3))
	})

	It("reports pending migrations before migrating", func() {
		output, err := rostercraft(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "status failed: %s", output)
		Expect(output).To(ContainSubstring("Pending migrations:"))

		output, err = rostercraft(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)

		output, err = rostercraft(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "status failed: %s", output)
		Expect(output).To(ContainSubstring("No pending migrations"))
	})
})
