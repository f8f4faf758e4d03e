// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package session owns the local state of one tournament: its ordered role list
// and one permission resolver per gated action.
//
// A Session is created explicitly and handed to whoever needs it. There is no
// process-wide store.
package session

import (
	"context"
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/rostercraft/rostercraft/internal/access"
	"github.com/rostercraft/rostercraft/internal/core"
	"github.com/rostercraft/rostercraft/internal/rolelist"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// Session is the tournament state shared by the consumers of one tournament.
type Session struct {
	tournamentID ulid.ULID
	service      tournament.Service
	broadcaster  *core.Broadcaster
	roles        *rolelist.List
	actions      []tournament.Action
	resolvers    map[tournament.Action]*access.Resolver
}

// New creates a session without loading anything. With no actions, every
// known gated action gets a resolver.
func New(service tournament.Service, tournamentID ulid.ULID, actions ...tournament.Action) (*Session, error) {
	if len(actions) == 0 {
		actions = tournament.Actions()
	}

	s := &Session{
		tournamentID: tournamentID,
		service:      service,
		broadcaster:  core.NewBroadcaster(),
		resolvers:    make(map[tournament.Action]*access.Resolver, len(actions)),
	}
	s.roles = rolelist.New(tournamentID, service, rolelist.WithPublisher(s.broadcaster))

	for _, action := range actions {
		if !action.Valid() {
			return nil, errUnknownAction(action)
		}
		if _, dup := s.resolvers[action]; dup {
			continue
		}
		s.actions = append(s.actions, action)
		s.resolvers[action] = access.New(tournamentID, action, service, access.WithPublisher(s.broadcaster))
	}
	return s, nil
}

// Open creates a session and loads its roles and grants from the service.
func Open(ctx context.Context, service tournament.Service, tournamentID ulid.ULID, actions ...tournament.Action) (*Session, error) {
	s, err := New(service, tournamentID, actions...)
	if err != nil {
		return nil, err
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// TournamentID returns the tournament this session belongs to.
func (s *Session) TournamentID() ulid.ULID {
	return s.tournamentID
}

// Actions returns the gated actions the session resolves.
func (s *Session) Actions() []tournament.Action {
	return slices.Clone(s.actions)
}

// Roles returns the tournament's ordered role list.
func (s *Session) Roles() *rolelist.List {
	return s.roles
}

// Permissions returns the resolver of a gated action.
func (s *Session) Permissions(action tournament.Action) (*access.Resolver, error) {
	r, ok := s.resolvers[action]
	if !ok {
		return nil, errUnknownAction(action)
	}
	return r, nil
}

// Authorize returns nil when actor may perform action, and an error matching
// tournament.ErrForbidden when it may not. The check uses local state only.
func (s *Session) Authorize(actor tournament.Actor, action tournament.Action) error {
	r, err := s.Permissions(action)
	if err != nil {
		return err
	}
	return access.Require(r, actor, action)
}

// maxReloadAttempts bounds how often Reload refetches after a remote write
// was confirmed during its fetch.
const maxReloadAttempts = 3

// Reload fetches roles and every grant from the service. Nothing is applied
// unless all fetches succeed. Remote writes still in flight are superseded.
//
// A fetch never overwrites a write that was confirmed while it ran: such a
// component keeps its state and the fetch is repeated. Reload fails with
// tournament.ErrSuperseded if writes keep landing.
func (s *Session) Reload(ctx context.Context) error {
	for attempt := 1; attempt <= maxReloadAttempts; attempt++ {
		current, err := s.reload(ctx)
		if err != nil {
			return err
		}
		if current {
			return nil
		}
		slog.Debug("reload raced a confirmed write, fetching again",
			"tournament_id", s.tournamentID.String(),
			"attempt", attempt)
	}
	return oops.In("session").
		Code(tournament.CodeSuperseded).
		With("tournament_id", s.tournamentID.String()).
		With("attempts", maxReloadAttempts).
		Wrap(tournament.ErrSuperseded)
}

// reload runs one fetch and applies it to every component whose version did
// not move. It reports whether all components were applied.
func (s *Session) reload(ctx context.Context) (bool, error) {
	rolesVersion := s.roles.Version()
	grantVersions := make([]uint64, len(s.actions))
	for i, action := range s.actions {
		grantVersions[i] = s.resolvers[action].Version()
	}

	var roles []tournament.Role
	grants := make([]tournament.PermissionGrant, len(s.actions))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = s.service.ListRoles(gctx, s.tournamentID)
		if err != nil {
			return s.remoteErr("list roles", "", err)
		}
		return nil
	})
	for i, action := range s.actions {
		g.Go(func() error {
			grant, err := s.service.GetPermission(gctx, s.tournamentID, action)
			if err != nil {
				return s.remoteErr("get permission", action, err)
			}
			grants[i] = grant
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	current := s.roles.LoadAt(rolesVersion, roles)
	for i, action := range s.actions {
		if !s.resolvers[action].LoadAt(grantVersions[i], grants[i]) {
			current = false
		}
	}
	return current, nil
}

// Subscribe returns a channel of state changes and a function that ends the
// subscription and closes the channel. Slow subscribers miss changes.
func (s *Session) Subscribe() (<-chan core.Change, func()) {
	stream := core.TournamentStream(s.tournamentID)
	ch := s.broadcaster.Subscribe(stream)
	return ch, func() { s.broadcaster.Unsubscribe(stream, ch) }
}

func (s *Session) remoteErr(op string, action tournament.Action, err error) error {
	b := oops.In("session").
		Code(tournament.CodeRemoteFailure).
		With("tournament_id", s.tournamentID.String())
	if action != "" {
		b = b.With("action", string(action))
	}
	return b.Wrap(&tournament.RemoteError{Op: op, Err: err})
}

func errUnknownAction(action tournament.Action) error {
	return oops.In("session").
		Code(tournament.CodeUnknownAction).
		With("action", string(action)).
		Wrap(tournament.ErrUnknownAction)
}
