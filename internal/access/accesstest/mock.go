// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package accesstest provides test helpers for access control.
package accesstest

import (
	"sync"

	"github.com/rostercraft/rostercraft/internal/access"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// AllowAll is an Authorizer that allows everything.
type AllowAll struct{}

// IsAuthorized always returns true.
func (AllowAll) IsAuthorized(tournament.Actor) bool {
	return true
}

// DenyAll is an Authorizer that denies everything.
type DenyAll struct{}

// IsAuthorized always returns false.
func (DenyAll) IsAuthorized(tournament.Actor) bool {
	return false
}

// Recorder is an Authorizer that answers with Allow and records every actor it
// was asked about.
type Recorder struct {
	Allow bool

	mu     sync.Mutex
	actors []tournament.Actor
}

// IsAuthorized implements access.Authorizer.
func (r *Recorder) IsAuthorized(actor tournament.Actor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = append(r.actors, actor)
	return r.Allow
}

// Actors returns the actors checked so far.
func (r *Recorder) Actors() []tournament.Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tournament.Actor(nil), r.actors...)
}

// Verify interfaces are satisfied.
var (
	_ access.Authorizer = AllowAll{}
	_ access.Authorizer = DenyAll{}
	_ access.Authorizer = (*Recorder)(nil)
)
