// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rostercraft/rostercraft/internal/config"
	"github.com/rostercraft/rostercraft/internal/observability"
	"github.com/rostercraft/rostercraft/internal/tournament"
	"github.com/rostercraft/rostercraft/internal/tournament/tournamenttest"
	"github.com/rostercraft/rostercraft/pkg/errutil"
)

type fakeDatabase struct {
	pings  atomic.Int32
	closed atomic.Bool
}

func (d *fakeDatabase) Ping(context.Context) error {
	d.pings.Add(1)
	return nil
}

func (d *fakeDatabase) Close() { d.closed.Store(true) }

type fakeObsServer struct {
	started bool
	stopped bool
	metrics *observability.Metrics
	errCh   chan error
}

func (s *fakeObsServer) Start() (<-chan error, error) {
	s.started = true
	return s.errCh, nil
}

func (s *fakeObsServer) Stop(context.Context) error {
	s.stopped = true
	return nil
}

func (s *fakeObsServer) Addr() string { return "127.0.0.1:0" }

func (s *fakeObsServer) Metrics() *observability.Metrics { return s.metrics }

func serveConfig() *config.Config {
	return &config.Config{
		Database: config.Database{URL: "postgres://db/test", ConnectTimeout: time.Second},
		API:      config.API{Addr: "127.0.0.1:0", WriteLimit: config.DefaultWriteLimit},
		Metrics:  config.Metrics{Addr: "127.0.0.1:0"},
	}
}

func testServeDeps(db *fakeDatabase, obs *fakeObsServer) *ServeDeps {
	return &ServeDeps{
		DatabaseOpener: func(context.Context, string) (Database, error) { return db, nil },
		ServiceFactory: func(Database) tournament.Service { return tournamenttest.NewService() },
		ObservabilityServerFactory: func(string, observability.ReadinessChecker) ObservabilityServer {
			return obs
		},
	}
}

func newTestObsServer() *fakeObsServer {
	return &fakeObsServer{
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		errCh:   make(chan error, 1),
	}
}

func TestRunServe_ShutsDownWhenContextEnds(t *testing.T) {
	db := &fakeDatabase{}
	obs := newTestObsServer()
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runServeWithDeps(ctx, serveConfig(), cmd, testServeDeps(db, obs))

	require.NoError(t, err)
	assert.True(t, obs.started)
	assert.True(t, obs.stopped)
	assert.True(t, db.closed.Load())
	assert.Contains(t, buf.String(), "API listening on 127.0.0.1:")
}

func TestRunServe_ObservabilityFailureStopsServer(t *testing.T) {
	db := &fakeDatabase{}
	obs := newTestObsServer()
	obs.errCh <- errors.New("metrics listener died")
	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	done := make(chan error, 1)
	go func() { done <- runServeWithDeps(context.Background(), serveConfig(), cmd, testServeDeps(db, obs)) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, obs.stopped)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after the observability server failed")
	}
}

func TestRunServe_MetricsDisabled(t *testing.T) {
	db := &fakeDatabase{}
	cfg := serveConfig()
	cfg.Metrics.Addr = ""
	deps := testServeDeps(db, nil)
	deps.ObservabilityServerFactory = func(string, observability.ReadinessChecker) ObservabilityServer {
		t.Fatal("observability server must not be created when disabled")
		return nil
	}
	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, runServeWithDeps(ctx, cfg, cmd, deps))
}

func TestRunServe_RequiresDatabase(t *testing.T) {
	cfg := serveConfig()
	cfg.Database.URL = ""

	err := runServeWithDeps(context.Background(), cfg, &cobra.Command{}, testServeDeps(&fakeDatabase{}, newTestObsServer()))

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, config.CodeInvalidConfig)
}

func TestConnectWithRetry(t *testing.T) {
	t.Run("retries until the database answers", func(t *testing.T) {
		db := &fakeDatabase{}
		var attempts int
		open := func(context.Context, string) (Database, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return db, nil
		}

		got, err := connectWithRetry(context.Background(), open, "postgres://db/test", 5*time.Second)

		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after the timeout", func(t *testing.T) {
		open := func(context.Context, string) (Database, error) {
			return nil, errors.New("connection refused")
		}

		_, err := connectWithRetry(context.Background(), open, "postgres://db/test", 300*time.Millisecond)

		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestMonitorServerErrors(t *testing.T) {
	t.Run("cancels on error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error, 1)
		errCh <- errors.New("boom")

		monitorServerErrors(ctx, cancel, errCh, "test")

		assert.Error(t, ctx.Err())
	})

	t.Run("closed channel leaves context alone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)

		monitorServerErrors(ctx, cancel, errCh, "test")

		assert.NoError(t, ctx.Err())
	})
}
