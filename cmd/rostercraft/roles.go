// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/rolelist"
	"github.com/rostercraft/rostercraft/internal/session"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// NewRolesCmd creates the roles subcommand group.
func NewRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List, reorder and remove tournament roles",
	}
	addTournamentFlag(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := loadRoleList(cmd)
			if err != nil {
				return err
			}
			return writeRoleTable(cmd.OutOrStdout(), list.Roles())
		},
	})

	var dryRun bool
	reorder := &cobra.Command{
		Use:   "reorder OP...",
		Short: "Reorder roles and save the new order",
		Long: `Applies reorder operations in sequence and saves the result in a single
request. Indices are 0-based positions in the current display order.

Operations:
  up:I       move the role at index I up one place
  down:I     move the role at index I down one place
  swap:I:J   exchange the roles at indices I and J

Example:
  rostercraft roles reorder -t 01J... up:3 down:1 swap:0:2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseReorderOps(args)
			if err != nil {
				return err
			}
			list, err := loadRoleList(cmd)
			if err != nil {
				return err
			}
			for _, op := range ops {
				if err := op.apply(list); err != nil {
					return oops.With("operation", op.raw).Wrap(err)
				}
			}
			if dryRun {
				return writeRoleTable(cmd.OutOrStdout(), list.Pending())
			}
			saved, err := list.Save(cmd.Context())
			if err != nil {
				return err
			}
			return writeRoleTable(cmd.OutOrStdout(), saved)
		},
	}
	reorder.Flags().BoolVar(&dryRun, "dry-run", false, "print the resulting order without saving")
	cmd.AddCommand(reorder)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove ROLE_ID",
		Short: "Delete a role (protected roles are refused)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, err := core.ParseULID(args[0])
			if err != nil {
				return oops.Code(tournament.CodeInvalidRequest).Wrap(err)
			}
			list, err := loadRoleList(cmd)
			if err != nil {
				return err
			}
			if err := list.Remove(cmd.Context(), roleID); err != nil {
				return err
			}
			cmd.Printf("Removed role %s\n", roleID)
			return nil
		},
	})

	return cmd
}

func loadRoleList(cmd *cobra.Command) (*rolelist.List, error) {
	cc, err := newClientContext(cmd)
	if err != nil {
		return nil, err
	}
	s, err := session.Open(cmd.Context(), cc.service, cc.tournamentID, tournament.ActionManageRoles)
	if err != nil {
		return nil, err
	}
	return s.Roles(), nil
}

type reorderOp struct {
	raw  string
	kind string
	a, b int
}

func (op reorderOp) apply(list *rolelist.List) error {
	switch op.kind {
	case "up":
		return list.MoveUp(op.a)
	case "down":
		return list.MoveDown(op.a)
	default:
		return list.Swap(op.a, op.b)
	}
}

func parseReorderOps(args []string) ([]reorderOp, error) {
	ops := make([]reorderOp, 0, len(args))
	for _, raw := range args {
		parts := strings.Split(raw, ":")
		op := reorderOp{raw: raw, kind: parts[0]}
		want := 2
		if op.kind == "swap" {
			want = 3
		} else if op.kind != "up" && op.kind != "down" {
			return nil, invalidOp(raw, "unknown operation")
		}
		if len(parts) != want {
			return nil, invalidOp(raw, "wrong number of indices")
		}
		idx := make([]int, 0, 2)
		for _, p := range parts[1:] {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, invalidOp(raw, "index is not a number")
			}
			idx = append(idx, n)
		}
		op.a = idx[0]
		if len(idx) > 1 {
			op.b = idx[1]
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func invalidOp(raw, reason string) error {
	return oops.Code(tournament.CodeInvalidRequest).
		With("operation", raw).
		Errorf("invalid reorder operation %q: %s (use up:I, down:I or swap:I:J)", raw, reason)
}

func writeRoleTable(out io.Writer, roles []tournament.Role) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INDEX\tPOSITION\tID\tNAME\tFLAGS")
	for i, r := range roles {
		var flags []string
		if r.IsProtected {
			flags = append(flags, "protected")
		}
		if r.IsHidden {
			flags = append(flags, "hidden")
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", i, r.Position, r.ID, r.Name, strings.Join(flags, ","))
	}
	return w.Flush()
}
