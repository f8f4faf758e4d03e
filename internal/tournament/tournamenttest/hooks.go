// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

package tournamenttest

import (
	"context"
	"sync"
)

// FailOn returns a Hook that fails every call of op with err.
func FailOn(op string, err error) func(context.Context, string) error {
	return func(_ context.Context, got string) error {
		if got == op {
			return err
		}
		return nil
	}
}

// Gate holds calls of one operation in flight until Release is called or the
// call's context ends.
type Gate struct {
	op       string
	entered  chan struct{}
	release  chan struct{}
	released sync.Once
}

// NewGate creates a closed gate for op.
func NewGate(op string) *Gate {
	return &Gate{
		op:      op,
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Hook is installed as Service.Hook.
func (g *Gate) Hook(ctx context.Context, op string) error {
	if op != g.op {
		return nil
	}
	select {
	case g.entered <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entered is signalled each time a call reaches the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets all held and future calls through.
func (g *Gate) Release() {
	g.released.Do(func() { close(g.release) })
}
