// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*alarm
	armed   *sync.Cond
}

// alarm is one registered After, Sleep, or ticker deadline.
type alarm struct {
	due      time.Time
	fire     chan time.Time
	period   time.Duration // zero for one-shot alarms
	disarmed bool
}

// Fake returns a FakeClock frozen at start.
func Fake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.armed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot alarm. A non-positive d fires at once
// without registering anything.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return fire
	}
	c.arm(&alarm{due: c.now.Add(d), fire: fire})
	return fire
}

// Sleep blocks until Advance moves the clock past now+d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// NewTicker registers a periodic alarm.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker with non-positive interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &alarm{due: c.now.Add(d), fire: make(chan time.Time, 1), period: d}
	c.arm(entry)

	return &Ticker{
		C: entry.fire,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.disarmed = true
			c.armed.Broadcast()
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.period = d
			entry.due = c.now.Add(d)
			if entry.disarmed {
				entry.disarmed = false
				c.arm(entry)
			}
		},
	}
}

// arm adds an alarm to the pending set. Caller holds c.mu.
func (c *FakeClock) arm(entry *alarm) {
	if !slices.Contains(c.pending, entry) {
		c.pending = append(c.pending, entry)
	}
	c.armed.Broadcast()
}

// Advance moves the clock forward by d and fires every alarm whose
// deadline falls at or before the new time, earliest first. A ticker
// spanning several periods fires once per period; sends never block,
// so ticks beyond the channel's capacity are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, entry := range due {
			select {
			case entry.fire <- target:
			default:
			}
		}
	}
}

// takeDue removes expired one-shot alarms, reschedules expired tickers,
// and returns everything that should fire, ordered by deadline.
func (c *FakeClock) takeDue(target time.Time) []*alarm {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []*alarm
	kept := c.pending[:0]
	for _, entry := range c.pending {
		switch {
		case entry.disarmed:
		case entry.due.After(target):
			kept = append(kept, entry)
		default:
			due = append(due, entry)
		}
	}
	c.pending = kept

	slices.SortStableFunc(due, func(a, b *alarm) int { return a.due.Compare(b.due) })
	for _, entry := range due {
		if entry.period > 0 {
			entry.due = entry.due.Add(entry.period)
			c.pending = append(c.pending, entry)
		}
	}
	return due
}

// WaitForTimers blocks until at least n alarms are armed.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.armed.Wait()
	}
}

// PendingCount returns the number of armed alarms.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	count := 0
	for _, entry := range c.pending {
		if !entry.disarmed {
			count++
		}
	}
	return count
}
