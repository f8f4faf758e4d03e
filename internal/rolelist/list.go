// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package rolelist keeps the locally reorderable view of a tournament's roles and
// persists order changes to the remote tournament service.
//
// Reordering only changes sequence order. Positions are derived from the
// sequence when Save runs, so a failed save never leaves half-renumbered state.
package rolelist

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// List is the ordered role collection of one tournament.
//
// Remote writes (Save, Remove) are serialized: a second write issued while one
// is in flight fails with tournament.ErrSaveInProgress. A Save result that
// arrives after Load replaced the collection is discarded with
// tournament.ErrSuperseded. A fetch that started before a confirmed write is
// applied with LoadAt so it cannot overwrite that write.
type List struct {
	tournamentID ulid.ULID
	service      tournament.RoleService
	publisher    core.Publisher

	mu         sync.Mutex
	roles      []tournament.Role
	settled    []ulid.ULID // id order as of the last load or save
	generation uint64      // bumped by Load
	version    uint64      // bumped by every confirmed remote change
	writing    bool
}

// Option configures a List.
type Option func(*List)

// WithPublisher sets where change notifications go.
func WithPublisher(p core.Publisher) Option {
	return func(l *List) {
		l.publisher = p
	}
}

// New creates an empty list for a tournament.
func New(tournamentID ulid.ULID, service tournament.RoleService, opts ...Option) *List {
	l := &List{
		tournamentID: tournamentID,
		service:      service,
		publisher:    core.Discard{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TournamentID returns the tournament the list belongs to.
func (l *List) TournamentID() ulid.ULID {
	return l.tournamentID
}

// Load replaces the whole collection, sorted by position then id.
// Identifiers must be unique; which duplicate survives is unspecified.
func (l *List) Load(roles []tournament.Role) {
	l.mu.Lock()
	l.load(roles)
	l.mu.Unlock()

	l.publish(core.ChangeRolesLoaded, "")
}

// LoadAt is Load for roles fetched when Version returned version. It reports
// false and changes nothing if a save, remove or put was confirmed since.
func (l *List) LoadAt(version uint64, roles []tournament.Role) bool {
	l.mu.Lock()
	if l.version != version {
		l.mu.Unlock()
		return false
	}
	l.load(roles)
	l.mu.Unlock()

	l.publish(core.ChangeRolesLoaded, "")
	return true
}

// Version identifies the last confirmed remote change. It does not move on
// Load or on local reordering.
func (l *List) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// load must be called with mu held.
func (l *List) load(roles []tournament.Role) {
	sorted := tournament.SortRoles(roles)
	l.roles = sorted
	l.settled = tournament.RoleIDs(sorted)
	l.generation++
}

// Swap exchanges the entries at indexA and indexB. Both indices are checked
// before anything moves.
func (l *List) Swap(indexA, indexB int) error {
	l.mu.Lock()
	if err := l.checkIndex(indexA); err != nil {
		l.mu.Unlock()
		return err
	}
	if err := l.checkIndex(indexB); err != nil {
		l.mu.Unlock()
		return err
	}
	if indexA == indexB {
		l.mu.Unlock()
		return nil
	}
	l.roles[indexA], l.roles[indexB] = l.roles[indexB], l.roles[indexA]
	l.mu.Unlock()

	l.publish(core.ChangeRolesReordered, "")
	return nil
}

// MoveUp swaps the entry at index with its predecessor. MoveUp(0) is a no-op.
func (l *List) MoveUp(index int) error {
	return l.move(index, -1)
}

// MoveDown swaps the entry at index with its successor. Moving the last entry
// down is a no-op.
func (l *List) MoveDown(index int) error {
	return l.move(index, 1)
}

func (l *List) move(index, delta int) error {
	l.mu.Lock()
	if err := l.checkIndex(index); err != nil {
		l.mu.Unlock()
		return err
	}
	target := index + delta
	if target < 0 || target >= len(l.roles) {
		l.mu.Unlock()
		return nil
	}
	l.roles[index], l.roles[target] = l.roles[target], l.roles[index]
	l.mu.Unlock()

	l.publish(core.ChangeRolesReordered, "")
	return nil
}

// Save sends the renumbered sequence to the remote service in a single call.
//
// On success the service's canonical roles become local state, unless the
// sequence order differs from what was sent; those newer local edits are kept
// and remain unsaved. On failure local state is left exactly as
// it was and the error matches tournament.ErrRemote; the caller may retry or Load.
func (l *List) Save(ctx context.Context) ([]tournament.Role, error) {
	l.mu.Lock()
	if l.writing {
		l.mu.Unlock()
		return nil, l.errBusy("save")
	}
	l.writing = true
	generation := l.generation
	payload := tournament.Renumber(l.roles)
	l.mu.Unlock()

	saved, err := l.service.PersistRoleOrder(ctx, l.tournamentID, payload)

	l.mu.Lock()
	l.writing = false
	if err != nil {
		l.mu.Unlock()
		return nil, oops.In("rolelist").
			Code(tournament.CodeRemoteFailure).
			With("tournament_id", l.tournamentID.String()).
			With("roles", len(payload)).
			Wrap(&tournament.RemoteError{Op: "persist role order", Err: err})
	}
	if l.generation != generation {
		l.version++
		l.mu.Unlock()
		return nil, oops.In("rolelist").
			Code(tournament.CodeSuperseded).
			With("tournament_id", l.tournamentID.String()).
			Wrap(tournament.ErrSuperseded)
	}
	saved = tournament.SortRoles(saved)
	l.settled = tournament.RoleIDs(saved)
	l.version++
	if slices.Equal(tournament.RoleIDs(l.roles), tournament.RoleIDs(payload)) {
		l.roles = slices.Clone(saved)
	}
	l.mu.Unlock()

	slog.Debug("role order saved",
		"tournament_id", l.tournamentID.String(),
		"roles", len(saved))
	l.publish(core.ChangeRolesSaved, "")
	return saved, nil
}

// Remove deletes a role remotely and then drops it from the local sequence.
// Protected roles are refused locally without contacting the service. The
// remaining positions are closed up by the next Save or Load.
func (l *List) Remove(ctx context.Context, roleID ulid.ULID) error {
	l.mu.Lock()
	i := l.indexOf(roleID)
	if i < 0 {
		l.mu.Unlock()
		return oops.In("rolelist").
			Code(tournament.CodeRoleNotFound).
			With("role_id", roleID.String()).
			Wrap(tournament.ErrRoleNotFound)
	}
	if l.roles[i].IsProtected {
		name := l.roles[i].Name
		l.mu.Unlock()
		return oops.In("rolelist").
			Code(tournament.CodeProtectedRole).
			With("role_id", roleID.String()).
			With("role_name", name).
			Wrap(tournament.ErrProtectedRole)
	}
	if l.writing {
		l.mu.Unlock()
		return l.errBusy("remove")
	}
	l.writing = true
	l.mu.Unlock()

	_, err := l.service.DeleteRole(ctx, l.tournamentID, roleID)

	l.mu.Lock()
	l.writing = false
	if err != nil {
		l.mu.Unlock()
		return oops.In("rolelist").
			Code(tournament.CodeRemoteFailure).
			With("tournament_id", l.tournamentID.String()).
			With("role_id", roleID.String()).
			Wrap(&tournament.RemoteError{Op: "delete role", Err: err})
	}
	// The role is gone remotely; drop it from whatever the list holds now.
	if i := l.indexOf(roleID); i >= 0 {
		l.roles = slices.Delete(l.roles, i, i+1)
	}
	l.settled = slices.DeleteFunc(l.settled, func(id ulid.ULID) bool { return id == roleID })
	l.version++
	l.mu.Unlock()

	l.publish(core.ChangeRoleRemoved, roleID.String())
	return nil
}

// Put mirrors a role created or edited remotely. An existing entry is replaced
// in place; a new one is appended.
func (l *List) Put(role tournament.Role) {
	l.mu.Lock()
	if i := l.indexOf(role.ID); i >= 0 {
		l.roles[i] = role
	} else {
		l.roles = append(l.roles, role)
		l.settled = append(l.settled, role.ID)
	}
	l.version++
	l.mu.Unlock()

	l.publish(core.ChangeRolePut, role.ID.String())
}

// Roles returns a copy of the current sequence.
func (l *List) Roles() []tournament.Role {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.roles)
}

// Pending returns the sequence Save would send, with positions renumbered.
func (l *List) Pending() []tournament.Role {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tournament.Renumber(l.roles)
}

// Dirty reports whether the local order differs from the last load or save.
func (l *List) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !slices.Equal(tournament.RoleIDs(l.roles), l.settled)
}

// Len returns the number of roles.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.roles)
}

// Index returns the sequence index of a role, or -1.
func (l *List) Index(roleID ulid.ULID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexOf(roleID)
}

// checkIndex must be called with mu held.
func (l *List) checkIndex(i int) error {
	if i < 0 || i >= len(l.roles) {
		return oops.In("rolelist").
			Code(tournament.CodeIndexOutOfRange).
			With("index", i).
			With("length", len(l.roles)).
			Wrap(tournament.ErrIndexOutOfRange)
	}
	return nil
}

// indexOf must be called with mu held.
func (l *List) indexOf(roleID ulid.ULID) int {
	return slices.IndexFunc(l.roles, func(r tournament.Role) bool { return r.ID == roleID })
}

func (l *List) errBusy(op string) error {
	return oops.In("rolelist").
		Code(tournament.CodeSaveInProgress).
		With("tournament_id", l.tournamentID.String()).
		With("operation", op).
		Wrap(tournament.ErrSaveInProgress)
}

func (l *List) publish(kind core.ChangeKind, subject string) {
	l.publisher.Broadcast(core.NewChange(l.tournamentID, kind, subject))
}
