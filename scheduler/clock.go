package scheduler

import (
	"slices"
	"sync"
	"time"
)

// Timer is a pending callback. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// Ticker delivers periodic ticks, dropping ticks for slow receivers.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is the time source the scheduler looks ahead against and the
// primitive it uses to fire callbacks at precise instants.
type Clock interface {
	Now() time.Time
	At(t time.Time, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

// WallClock is the host monotonic clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

func (WallClock) At(t time.Time, f func()) Timer {
	return time.AfterFunc(time.Until(t), f)
}

func (WallClock) NewTicker(d time.Duration) Ticker {
	return wallTicker{time.NewTicker(d)}
}

type wallTicker struct{ t *time.Ticker }

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// ManualClock is a virtual clock that only moves when Advance is called.
// Timers fire synchronously inside Advance, in time order, with Now reading
// each timer's own instant while it runs.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	timers  []*manualTimer
	tickers []*manualTicker
}

// NewManualClock returns a clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) At(t time.Time, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	mt := &manualTimer{clock: c, at: t, seq: c.seq, f: f}
	c.timers = append(c.timers, mt)
	return mt
}

func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := &manualTicker{clock: c, period: d, next: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, mt)
	return mt
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves the clock forward by d, firing every timer due on the way and
// signalling tickers. Advance(0) fires timers already due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := c.nextDue(target)
		if due == nil {
			c.now = target
			c.tick()
			c.mu.Unlock()
			return
		}
		c.remove(due)
		if due.at.After(c.now) {
			c.now = due.at
		}
		c.tick()
		c.mu.Unlock()

		due.f()
	}
}

// nextDue returns the earliest timer at or before target, ties in creation order.
func (c *ManualClock) nextDue(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range c.timers {
		if t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || t.at.Equal(best.at) && t.seq < best.seq {
			best = t
		}
	}
	return best
}

func (c *ManualClock) remove(t *manualTimer) bool {
	i := slices.Index(c.timers, t)
	if i < 0 {
		return false
	}
	c.timers = slices.Delete(c.timers, i, i+1)
	return true
}

func (c *ManualClock) tick() {
	for _, t := range c.tickers {
		fired := false
		for !t.next.After(c.now) {
			t.next = t.next.Add(t.period)
			fired = true
		}
		if fired {
			select {
			case t.ch <- c.now:
			default:
			}
		}
	}
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	seq   int
	f     func()
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.remove(t)
}

type manualTicker struct {
	clock  *ManualClock
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if i := slices.Index(t.clock.tickers, t); i >= 0 {
		t.clock.tickers = slices.Delete(t.clock.tickers, i, i+1)
	}
}
