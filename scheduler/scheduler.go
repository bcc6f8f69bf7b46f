// Package scheduler plays streams against a clock.
//
// A coarse ticker decides when to look ahead; the clock's own timers decide
// when events sound. Every period the scheduler queries each stream over the
// cycles between the last window and now plus the lookahead, converts each
// onset to a clock instant and arms a timer for it. Jitter in the ticker only
// moves when a window is computed, never when an event fires.
package scheduler

import (
	"math"
	"sync"
	"time"

	"go-cycles/debug"
	"go-cycles/stream"
)

// Defaults used when no option overrides them.
const (
	DefaultTempo         = 0.5 // cycles per second
	DefaultPeriod        = 25 * time.Millisecond
	DefaultLatency       = 100 * time.Millisecond
	DefaultLateTolerance = 10 * time.Millisecond
)

// Stats counts scheduler activity since the last Play.
type Stats struct {
	Windows    int
	Dispatched int
	Late       int
	Pending    int
	QueryFrom  float64
}

// Scheduler is a Stopped/Running state machine driving a set of streams.
type Scheduler struct {
	clock Clock
	sink  Sink

	period        time.Duration
	latency       time.Duration
	lateTolerance time.Duration

	mu        sync.Mutex // state below
	tempo     float64
	pending   float64 // tempo to apply at the next window, 0 if none
	streams   []*stream.Stream
	running   bool
	tl        timeline
	queryFrom float64
	ticker    Ticker
	stop      chan struct{}
	wg        sync.WaitGroup
	windows   int

	dmu    sync.Mutex // dispatch side; taken after mu when both are held
	gen    int
	nextID int
	timers map[int]Timer
	stats  Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTempo sets the initial tempo in cycles per second.
func WithTempo(cps float64) Option { return func(s *Scheduler) { s.tempo = cps } }

// WithPeriod sets how often the lookahead window is computed.
func WithPeriod(d time.Duration) Option { return func(s *Scheduler) { s.period = d } }

// WithLatency sets how far past the next period events are scheduled.
func WithLatency(d time.Duration) Option { return func(s *Scheduler) { s.latency = d } }

// WithLateTolerance sets the lateness above which a LateDispatch diagnostic is sent.
func WithLateTolerance(d time.Duration) Option {
	return func(s *Scheduler) { s.lateTolerance = d }
}

// New returns a stopped scheduler. Settings are validated by Play.
func New(clock Clock, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:         clock,
		sink:          sink,
		tempo:         DefaultTempo,
		period:        DefaultPeriod,
		latency:       DefaultLatency,
		lateTolerance: DefaultLateTolerance,
		timers:        make(map[int]Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = SinkFuncs{}
	}
	return s
}

// Add registers a stream. Adding a stream with an existing id replaces it.
func (s *Scheduler) Add(st *stream.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.streams {
		if cur.ID() == st.ID() {
			s.streams[i] = st
			return
		}
	}
	s.streams = append(s.streams, st)
}

// Remove unregisters a stream. Events it already has scheduled still fire.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.streams {
		if cur.ID() == id {
			s.streams = append(s.streams[:i], s.streams[i+1:]...)
			return
		}
	}
}

func validTempo(cps float64) error {
	if !(cps > 0) || math.IsInf(cps, 0) {
		return &ConfigError{Field: "tempo", Msg: "must be a positive number of cycles per second"}
	}
	return nil
}

// SetTempo changes the tempo. While running the change takes effect at the
// start of the next lookahead window; events already scheduled keep their times.
func (s *Scheduler) SetTempo(cps float64) error {
	if err := validTempo(cps); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.pending = cps
	}
	s.tempo = cps
	debug.Log("sched", "tempo %.4f cps", cps)
	return nil
}

// Tempo returns the most recently requested tempo.
func (s *Scheduler) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}

// Running reports whether the scheduler is playing.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Position returns the cycle under the clock now, or 0 when stopped.
func (s *Scheduler) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.tl.CycleAt(s.clock.Now())
}

// Stats returns a snapshot of the activity counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	windows, from := s.windows, s.queryFrom
	s.mu.Unlock()

	s.dmu.Lock()
	defer s.dmu.Unlock()
	st := s.stats
	st.Windows = windows
	st.QueryFrom = from
	st.Pending = len(s.timers)
	return st
}

// Play starts playback from cycle 0. The first window is scheduled before
// Play returns. Playing while running is a no-op.
func (s *Scheduler) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := validTempo(s.tempo); err != nil {
		return err
	}
	if s.period <= 0 {
		return &ConfigError{Field: "period", Msg: "must be positive"}
	}
	if s.latency < 0 {
		return &ConfigError{Field: "latency", Msg: "must not be negative"}
	}

	s.running = true
	s.tl = timeline{origin: s.clock.Now(), cps: s.tempo}
	s.pending = 0
	s.queryFrom = 0
	s.windows = 0

	s.dmu.Lock()
	s.gen++
	s.stats = Stats{}
	s.dmu.Unlock()

	debug.Log("sched", "play at %.4f cps, period=%s latency=%s", s.tempo, s.period, s.latency)
	s.fillLocked()

	s.ticker = s.clock.NewTicker(s.period)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.ticker, s.stop)
	return nil
}

// Stop halts playback and revokes every timer that has not fired. No sink
// call starts after Stop returns. Stopping while stopped is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.stop)

	s.dmu.Lock()
	s.gen++
	revoked := 0
	for id, t := range s.timers {
		if t.Stop() {
			revoked++
		}
		delete(s.timers, id)
	}
	s.dmu.Unlock()

	s.queryFrom = 0
	s.pending = 0
	s.mu.Unlock()

	s.wg.Wait()
	debug.Log("sched", "stop, revoked %d pending events", revoked)
}

// loop recomputes the window on every tick until stop is closed. A fill
// always reaches now plus the lookahead, so dropped ticks are caught up.
func (s *Scheduler) loop(ticker Ticker, stop chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.mu.Lock()
			if s.running {
				s.fillLocked()
			}
			s.mu.Unlock()
		}
	}
}

// fillLocked schedules every onset in [queryFrom, cycle at now+period+latency).
// Callers hold s.mu.
func (s *Scheduler) fillLocked() {
	if s.pending > 0 {
		s.tl = s.tl.Rebase(s.queryFrom, s.pending)
		debug.Log("sched", "tempo %.4f cps from cycle %.4f", s.pending, s.queryFrom)
		s.pending = 0
	}

	now := s.clock.Now()
	horizon := now.Add(s.period + s.latency)
	from, to := s.queryFrom, s.tl.CycleAt(horizon)
	if to <= from {
		return
	}
	debug.LogEvery(40, "sched", "window [%.4f, %.4f)", from, to)

	for _, st := range s.streams {
		events, err := st.Query(from, to)
		if err == nil {
			var muts []stream.Event
			muts, err = st.Mutations(from, to)
			events = append(events, muts...)
		}
		if err != nil {
			debug.Log("sched", "query %s [%.4f, %.4f): %v", st.ID(), from, to, err)
			s.diagnose(Diagnostic{Kind: QueryFailed, Stream: st.ID(), Cycle: from, Err: err})
			continue
		}
		for _, ev := range events {
			// windows overlap at cycle edges; only onsets inside this one are ours
			if ev.Time < from || ev.Time >= to {
				continue
			}
			s.schedule(ev, now)
		}
	}
	s.queryFrom = to
	s.windows++
}

// schedule arms a timer for ev. Onsets already in the past fire now and are
// flagged late.
func (s *Scheduler) schedule(ev stream.Event, now time.Time) {
	at := s.tl.TimeAt(ev.Time)
	fireAt, clamped := at, false
	if at.Before(now) {
		fireAt, clamped = now, true
	}

	s.dmu.Lock()
	defer s.dmu.Unlock()
	s.nextID++
	id, gen := s.nextID, s.gen
	d := Dispatch{Event: ev, At: at, Cycle: ev.Time, Late: clamped}
	s.timers[id] = s.clock.At(fireAt, func() { s.fire(id, gen, d) })
}

// fire delivers a scheduled dispatch unless Stop has run since it was armed.
func (s *Scheduler) fire(id, gen int, d Dispatch) {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if gen != s.gen {
		return
	}
	delete(s.timers, id)

	if lateness := s.clock.Now().Sub(d.At); lateness > 0 {
		d.Lateness = lateness
		if lateness > s.lateTolerance {
			d.Late = true
		}
	}
	if d.Late {
		s.stats.Late++
		debug.LogEvery(10, "late", "%s cycle %.4f late by %s", d.Event.Stream, d.Cycle, d.Lateness)
		if d.Lateness > s.lateTolerance {
			s.sink.Diagnose(Diagnostic{Kind: LateDispatch, Stream: d.Event.Stream, Cycle: d.Cycle, Lateness: d.Lateness})
		}
	}
	s.stats.Dispatched++
	debug.Log("dispatch", "%s cycle %.4f params=%v", d.Event.Stream, d.Cycle, d.Event.Params)
	s.sink.Dispatch(d)
}

func (s *Scheduler) diagnose(d Diagnostic) {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	s.sink.Diagnose(d)
}
