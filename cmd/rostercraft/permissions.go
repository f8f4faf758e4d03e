// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/rostercraft/rostercraft/internal/access"
	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/session"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// grantFlags are the id lists shared by set, grant and revoke.
type grantFlags struct {
	action string
	roles  []string
	staff  []string
}

func (g *grantFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&g.action, "action", "a", "", "gated action ("+actionList()+")")
	cmd.Flags().StringSliceVar(&g.roles, "role", nil, "role id (repeatable or comma separated)")
	cmd.Flags().StringSliceVar(&g.staff, "staff", nil, "staff member id (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("action")
}

// NewPermissionsCmd creates the permissions subcommand group.
func NewPermissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Show, change and check permission grants",
		Long: `A grant names the roles and staff members allowed one action. An actor is
authorized when they are a listed staff member or hold a listed role.`,
	}
	addTournamentFlag(cmd)

	var showAction string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show grants for every action, or one with --action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newClientContext(cmd)
			if err != nil {
				return err
			}
			var actions []tournament.Action
			if showAction != "" {
				a, err := parseAction(showAction)
				if err != nil {
					return err
				}
				actions = append(actions, a)
			}
			s, err := session.Open(cmd.Context(), cc.service, cc.tournamentID, actions...)
			if err != nil {
				return err
			}
			grants := make([]tournament.PermissionGrant, 0, len(s.Actions()))
			for _, a := range s.Actions() {
				r, err := s.Permissions(a)
				if err != nil {
					return err
				}
				grants = append(grants, r.Grant())
			}
			return writeGrantTable(cmd.OutOrStdout(), grants...)
		},
	}
	show.Flags().StringVarP(&showAction, "action", "a", "", "only this action")
	cmd.AddCommand(show)

	cmd.AddCommand(newGrantCmd("set", "Replace a grant with exactly the given roles and staff",
		func(_ tournament.PermissionGrant, roles, staff tournament.IDSet) (tournament.IDSet, tournament.IDSet) {
			return roles, staff
		}))
	cmd.AddCommand(newGrantCmd("grant", "Add roles and staff members to a grant",
		func(cur tournament.PermissionGrant, roles, staff tournament.IDSet) (tournament.IDSet, tournament.IDSet) {
			return cur.RoleIDs.Add(roles.Sorted()...), cur.StaffIDs.Add(staff.Sorted()...)
		}))
	cmd.AddCommand(newGrantCmd("revoke", "Remove roles and staff members from a grant",
		func(cur tournament.PermissionGrant, roles, staff tournament.IDSet) (tournament.IDSet, tournament.IDSet) {
			return cur.RoleIDs.Remove(roles.Sorted()...), cur.StaffIDs.Remove(staff.Sorted()...)
		}))

	cmd.AddCommand(newCheckCmd())
	return cmd
}

type grantEdit func(current tournament.PermissionGrant, roles, staff tournament.IDSet) (tournament.IDSet, tournament.IDSet)

// newGrantCmd builds a command that loads one grant, edits it locally and
// replaces it with a single request.
func newGrantCmd(use, short string, edit grantEdit) *cobra.Command {
	flags := &grantFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			action, err := parseAction(flags.action)
			if err != nil {
				return err
			}
			roles, err := parseIDSet(flags.roles)
			if err != nil {
				return err
			}
			staff, err := parseIDSet(flags.staff)
			if err != nil {
				return err
			}
			cc, err := newClientContext(cmd)
			if err != nil {
				return err
			}

			resolver, err := loadResolver(cmd, cc, action)
			if err != nil {
				return err
			}
			newRoles, newStaff := edit(resolver.Grant(), roles, staff)
			stored, err := resolver.Replace(cmd.Context(), newRoles, newStaff)
			if err != nil {
				return err
			}
			return writeGrantTable(cmd.OutOrStdout(), stored)
		},
	}
	flags.register(cmd)
	return cmd
}

func loadResolver(cmd *cobra.Command, cc *clientContext, action tournament.Action) (*access.Resolver, error) {
	s, err := session.Open(cmd.Context(), cc.service, cc.tournamentID, action)
	if err != nil {
		return nil, err
	}
	return s.Permissions(action)
}

func newCheckCmd() *cobra.Command {
	var (
		actionName string
		staffRaw   string
		rolesRaw   []string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether an actor is authorized for an action",
		Long: `Exits with status 0 when the actor is authorized and non-zero otherwise.

Example:
  rostercraft permissions check -t 01J... -a manage_roles --staff 01K... --role 01H...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			action, err := parseAction(actionName)
			if err != nil {
				return err
			}
			var staffID ulid.ULID
			if staffRaw != "" {
				if staffID, err = core.ParseULID(staffRaw); err != nil {
					return err
				}
			}
			roles, err := parseIDSet(rolesRaw)
			if err != nil {
				return err
			}
			cc, err := newClientContext(cmd)
			if err != nil {
				return err
			}
			s, err := session.Open(cmd.Context(), cc.service, cc.tournamentID, action)
			if err != nil {
				return err
			}

			err = s.Authorize(tournament.Actor{StaffMemberID: staffID, RoleIDs: roles}, action)
			if errors.Is(err, tournament.ErrForbidden) {
				cmd.Printf("DENIED: %s\n", action)
				return err
			}
			if err != nil {
				return err
			}
			cmd.Printf("ALLOWED: %s\n", action)
			return nil
		},
	}
	cmd.Flags().StringVarP(&actionName, "action", "a", "", "gated action ("+actionList()+")")
	cmd.Flags().StringVar(&staffRaw, "staff", "", "the actor's staff member id")
	cmd.Flags().StringSliceVar(&rolesRaw, "role", nil, "a role the actor holds (repeatable)")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func actionList() string {
	names := make([]string, 0, len(tournament.Actions()))
	for _, a := range tournament.Actions() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func writeGrantTable(out io.Writer, grants ...tournament.PermissionGrant) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ACTION\tKIND\tID")
	for _, g := range grants {
		if len(g.RoleIDs) == 0 && len(g.StaffIDs) == 0 {
			_, _ = fmt.Fprintf(w, "%s\t-\t(nobody)\n", g.Action)
			continue
		}
		for _, id := range g.RoleIDs.Sorted() {
			_, _ = fmt.Fprintf(w, "%s\trole\t%s\n", g.Action, id)
		}
		for _, id := range g.StaffIDs.Sorted() {
			_, _ = fmt.Fprintf(w, "%s\tstaff\t%s\n", g.Action, id)
		}
	}
	return w.Flush()
}
