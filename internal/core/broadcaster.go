// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ChangeKind names what happened to a tournament's local state.
type ChangeKind string

// Change kinds published by the role list and permission resolvers.
const (
	ChangeRolesLoaded    ChangeKind = "roles.loaded"
	ChangeRolesReordered ChangeKind = "roles.reordered"
	ChangeRolesSaved     ChangeKind = "roles.saved"
	ChangeRolePut        ChangeKind = "role.put"
	ChangeRoleRemoved    ChangeKind = "role.removed"
	ChangeGrantLoaded    ChangeKind = "grant.loaded"
	ChangeGrantReplaced  ChangeKind = "grant.replaced"
)

// Change notifies subscribers that derived views of a tournament must refresh.
type Change struct {
	ID        ulid.ULID
	Stream    string
	Kind      ChangeKind
	Subject   string // role id or gated action, empty for whole-list changes
	Timestamp time.Time
}

// NewChange stamps a change for the tournament stream.
func NewChange(tournamentID ulid.ULID, kind ChangeKind, subject string) Change {
	return Change{
		ID:        NewULID(),
		Stream:    TournamentStream(tournamentID),
		Kind:      kind,
		Subject:   subject,
		Timestamp: time.Now(),
	}
}

// TournamentStream returns the broadcast stream name for a tournament.
func TournamentStream(tournamentID ulid.ULID) string {
	return "tournament:" + tournamentID.String()
}

// Publisher receives state change notifications.
type Publisher interface {
	Broadcast(change Change)
}

// Broadcaster distributes changes to subscribers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string][]chan Change
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string][]chan Change),
	}
}

// Subscribe creates a channel for receiving changes on a stream.
func (b *Broadcaster) Subscribe(stream string) chan Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Change, 64)
	b.subs[stream] = append(b.subs[stream], ch)
	return ch
}

// Unsubscribe removes a channel from a stream and closes it.
func (b *Broadcaster) Unsubscribe(stream string, ch chan Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[stream]
	for i, sub := range subs {
		if sub == ch {
			b.subs[stream] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Broadcast sends a change to all subscribers of its stream. It never blocks:
// a subscriber with a full buffer misses the change.
func (b *Broadcaster) Broadcast(change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[change.Stream] {
		select {
		case ch <- change:
		default:
			slog.Warn("change dropped: subscriber buffer full",
				"stream", change.Stream,
				"change_id", change.ID.String(),
				"kind", change.Kind,
			)
		}
	}
}

// Discard is a Publisher that drops every change.
type Discard struct{}

// Broadcast does nothing.
func (Discard) Broadcast(Change) {}

var (
	_ Publisher = (*Broadcaster)(nil)
	_ Publisher = Discard{}
)
