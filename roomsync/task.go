// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package roomsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/dailyfix/lib/clock"
)

// State is the phase of a view's scheduled task.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateApplying
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateApplying:
		return "applying"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Update is the outcome of one applied cycle.
type Update[T any] struct {
	// Value is the latest successfully fetched value. When Err is set
	// it is the value from the last successful cycle, or the zero
	// value if none has succeeded.
	Value T

	// Err is the failure of this cycle, nil on success.
	Err error

	// Cycle counts applied cycles, starting at 1.
	Cycle int

	// At is the clock time the cycle was applied.
	At time.Time
}

// Stats counts a view's activity.
type Stats struct {
	Cycles       int
	Failures     int
	SkippedTicks int
	State        State
}

// task runs fetch once immediately and then once per tick, never two
// at a time. Results that arrive after stop are dropped.
type task[T any] struct {
	clock    clock.Clock
	logger   *slog.Logger
	fetch    func(ctx context.Context) (T, error)
	onUpdate func(Update[T])
	hooks    hooks

	ctx    context.Context
	cancel context.CancelFunc

	// inflight is held by the running cycle.
	inflight chan struct{}

	// running tracks the loop and every cycle goroutine so stop can
	// wait for them.
	running sync.WaitGroup
	done    chan struct{}

	mu      sync.Mutex
	stopped bool
	state   State
	latest  Update[T]
	stats   Stats
}

func startTask[T any](ctx context.Context, clk clock.Clock, interval time.Duration, logger *slog.Logger,
	fetch func(context.Context) (T, error), onUpdate func(Update[T]), hooks hooks) *task[T] {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &task[T]{
		clock:    clk,
		logger:   logger,
		fetch:    fetch,
		onUpdate: onUpdate,
		hooks:    hooks,
		ctx:      taskCtx,
		cancel:   cancel,
		inflight: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	ticker := clk.NewTicker(interval)
	t.tryStartCycle()
	t.running.Add(1)
	go t.loop(ticker)
	return t
}

func (t *task[T]) loop(ticker *clock.Ticker) {
	defer t.running.Done()
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			started := t.tryStartCycle()
			if !started {
				t.logger.Debug("skipping tick, cycle still in flight")
			}
			if t.hooks.tick != nil {
				t.hooks.tick(started)
			}
		}
	}
}

// tryStartCycle launches a cycle in the background unless one is in
// flight or the task is stopped. A refused tick counts as skipped.
func (t *task[T]) tryStartCycle() bool {
	t.mu.Lock()
	if t.stopped || t.ctx.Err() != nil {
		t.mu.Unlock()
		return false
	}
	select {
	case t.inflight <- struct{}{}:
	default:
		t.stats.SkippedTicks++
		t.mu.Unlock()
		return false
	}
	t.running.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.running.Done()
		t.cycle()
		<-t.inflight
		if t.hooks.cycleDone != nil {
			t.hooks.cycleDone()
		}
	}()
	return true
}

// runNow waits for any in-flight cycle and then runs one cycle in the
// caller's goroutine.
// halted reports whether the task was stopped or its context is done.
func (t *task[T]) halted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped || t.ctx.Err() != nil
}

func (t *task[T]) runNow(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped || t.ctx.Err() != nil {
		t.mu.Unlock()
		return ErrStopped
	}
	t.running.Add(1)
	t.mu.Unlock()
	defer t.running.Done()

	select {
	case t.inflight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ctx.Done():
		return ErrStopped
	}
	defer func() { <-t.inflight }()

	t.cycle()
	return nil
}

func (t *task[T]) cycle() {
	if !t.transition(StateFetching) {
		return
	}
	value, err := t.fetch(t.ctx)

	t.mu.Lock()
	if t.stopped || t.ctx.Err() != nil {
		t.mu.Unlock()
		t.logger.Debug("dropping result of cycle that finished after stop")
		return
	}
	t.state = StateApplying
	t.stats.Cycles++
	if err != nil {
		t.stats.Failures++
	} else {
		t.latest.Value = value
	}
	t.latest.Err = err
	t.latest.Cycle = t.stats.Cycles
	t.latest.At = t.clock.Now()
	update := t.latest
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("sync cycle failed", "cycle", update.Cycle, "error", err)
	} else {
		t.logger.Debug("sync cycle applied", "cycle", update.Cycle)
	}
	if t.onUpdate != nil {
		t.onUpdate(update)
	}
	t.transition(StateIdle)
}

// transition moves to state unless the task is stopped.
func (t *task[T]) transition(state State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.state = state
	return true
}

func (t *task[T]) latestUpdate() Update[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

func (t *task[T]) currentStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.State = t.state
	return stats
}

// stop cancels the task and waits for the loop and any cycle to
// return. Safe to call more than once.
func (t *task[T]) stop() {
	t.mu.Lock()
	first := !t.stopped
	t.stopped = true
	t.state = StateStopped
	t.mu.Unlock()

	t.cancel()
	t.running.Wait()
	if first {
		t.logger.Debug("view stopped")
	}
}
