// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// Resolver is the permission state of one (tournament, action) pair.
//
// Only one Replace may be in flight; a second one fails with
// tournament.ErrSaveInProgress. A Replace result that arrives after Load
// swapped the grant is discarded with tournament.ErrSuperseded.
type Resolver struct {
	tournamentID ulid.ULID
	action       tournament.Action
	service      tournament.PermissionService
	publisher    core.Publisher

	mu         sync.RWMutex
	grant      tournament.PermissionGrant
	generation uint64
	version    uint64 // bumped by every confirmed Replace
	writing    bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPublisher sets where change notifications go.
func WithPublisher(p core.Publisher) Option {
	return func(r *Resolver) {
		r.publisher = p
	}
}

// New creates a resolver holding an empty grant.
func New(tournamentID ulid.ULID, action tournament.Action, service tournament.PermissionService, opts ...Option) *Resolver {
	r := &Resolver{
		tournamentID: tournamentID,
		action:       action,
		service:      service,
		publisher:    core.Discard{},
		grant:        tournament.EmptyGrant(tournamentID, action),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Action returns the gated action this resolver answers for.
func (r *Resolver) Action() tournament.Action {
	return r.action
}

// Load replaces the local grant unconditionally.
func (r *Resolver) Load(grant tournament.PermissionGrant) {
	g := r.normalize(grant)

	r.mu.Lock()
	r.grant = g
	r.generation++
	r.mu.Unlock()

	r.publish(core.ChangeGrantLoaded)
}

// LoadAt is Load for a grant fetched when Version returned version. It
// reports false and changes nothing if a Replace was confirmed since.
func (r *Resolver) LoadAt(version uint64, grant tournament.PermissionGrant) bool {
	g := r.normalize(grant)

	r.mu.Lock()
	if r.version != version {
		r.mu.Unlock()
		return false
	}
	r.grant = g
	r.generation++
	r.mu.Unlock()

	r.publish(core.ChangeGrantLoaded)
	return true
}

// Version identifies the last confirmed Replace.
func (r *Resolver) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Replace sends the full desired role and staff sets in a single call. The
// result is a full replacement, never a union with the previous grant.
//
// On success the grant confirmed by the service becomes local state, even when
// it differs from what was sent. On failure the local grant is untouched and the
// service error is returned unchanged inside a *tournament.RemoteError. There is
// no retry.
func (r *Resolver) Replace(ctx context.Context, roleIDs, staffIDs tournament.IDSet) (tournament.PermissionGrant, error) {
	r.mu.Lock()
	if r.writing {
		r.mu.Unlock()
		return tournament.PermissionGrant{}, oops.In("access").
			Code(tournament.CodeSaveInProgress).
			With("tournament_id", r.tournamentID.String()).
			With("action", string(r.action)).
			Wrap(tournament.ErrSaveInProgress)
	}
	r.writing = true
	generation := r.generation
	r.mu.Unlock()

	confirmed, err := r.service.PersistPermission(ctx, r.tournamentID, r.action, roleIDs.Clone(), staffIDs.Clone())

	r.mu.Lock()
	r.writing = false
	if err != nil {
		r.mu.Unlock()
		return tournament.PermissionGrant{}, oops.In("access").
			Code(tournament.CodeRemoteFailure).
			With("tournament_id", r.tournamentID.String()).
			With("action", string(r.action)).
			Wrap(&tournament.RemoteError{Op: "persist permission", Err: err})
	}
	r.version++
	if r.generation != generation {
		r.mu.Unlock()
		return tournament.PermissionGrant{}, oops.In("access").
			Code(tournament.CodeSuperseded).
			With("tournament_id", r.tournamentID.String()).
			With("action", string(r.action)).
			Wrap(tournament.ErrSuperseded)
	}
	r.grant = r.normalize(confirmed)
	result := r.grant.Clone()
	r.mu.Unlock()

	slog.Debug("permission replaced",
		"tournament_id", r.tournamentID.String(),
		"action", string(r.action),
		"roles", len(result.RoleIDs),
		"staff_members", len(result.StaffIDs))
	r.publish(core.ChangeGrantReplaced)
	return result, nil
}

// IsAuthorized implements Authorizer. It reads only the local grant.
func (r *Resolver) IsAuthorized(actor tournament.Actor) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grant.Authorizes(actor)
}

// Grant returns a copy of the local grant.
func (r *Resolver) Grant() tournament.PermissionGrant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grant.Clone()
}

// normalize pins the grant to this resolver's key and never keeps nil sets.
func (r *Resolver) normalize(g tournament.PermissionGrant) tournament.PermissionGrant {
	out := tournament.EmptyGrant(r.tournamentID, r.action)
	for id := range g.RoleIDs {
		out.RoleIDs[id] = struct{}{}
	}
	for id := range g.StaffIDs {
		out.StaffIDs[id] = struct{}{}
	}
	return out
}

func (r *Resolver) publish(kind core.ChangeKind) {
	r.publisher.Broadcast(core.NewChange(r.tournamentID, kind, string(r.action)))
}

var _ Authorizer = (*Resolver)(nil)
