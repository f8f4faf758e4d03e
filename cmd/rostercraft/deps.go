// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"context"

	"github.com/rostercraft/rostercraft/internal/observability"
	"github.com/rostercraft/rostercraft/internal/store"
	"github.com/rostercraft/rostercraft/internal/tournament"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseOpener connects to the database.
	// Default: store.Open
	DatabaseOpener func(ctx context.Context, url string) (Database, error)

	// ServiceFactory builds the tournament service on a database.
	// Default: store.NewPostgresTournamentService on the pool
	ServiceFactory func(db Database) tournament.Service

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Database wraps the pool methods serve uses directly.
type Database interface {
	Ping(ctx context.Context) error
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

var (
	_ ObservabilityServer = (*observability.Server)(nil)
	_ Migrator            = (*store.Migrator)(nil)
)
