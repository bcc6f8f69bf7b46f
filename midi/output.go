package midi

import (
	"fmt"
	"math"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-cycles/debug"
	"go-cycles/pattern"
	"go-cycles/scheduler"
)

// Event parameters read by Output.
const (
	ParamNote     = "n"
	ParamVelocity = "vel"
	ParamChannel  = "ch"
	ParamDuration = "dur"
)

// Output defaults.
const (
	DefaultVelocity = 100
	DefaultDuration = 100 * time.Millisecond
)

// SendFunc writes one message to a port.
type SendFunc func(gomidi.Message) error

type noteKey struct {
	ch, key uint8
}

// Output is a scheduler sink that plays each dispatched event as a note:
// NoteOn when the event fires and NoteOff after its duration. Mutation
// events carry no note and are ignored.
type Output struct {
	send     SendFunc
	clock    scheduler.Clock
	channels map[string]uint8
	closer   func() error

	mu       sync.Mutex
	sounding map[noteKey]int // open NoteOns per key
	offs     map[int]scheduler.Timer
	nextID   int
	sent     int
	errs     int
	closed   bool
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithClock sets the clock used to time NoteOffs. Defaults to the wall clock.
func WithClock(c scheduler.Clock) OutputOption { return func(o *Output) { o.clock = c } }

// WithChannels maps stream ids to 1-based MIDI channels for events without `ch`.
func WithChannels(m map[string]int) OutputOption {
	return func(o *Output) {
		for id, ch := range m {
			if ch >= 1 && ch <= 16 {
				o.channels[id] = uint8(ch - 1)
			}
		}
	}
}

// NewOutput returns an Output writing through send.
func NewOutput(send SendFunc, opts ...OutputOption) *Output {
	o := &Output{
		send:     send,
		clock:    scheduler.WallClock{},
		channels: make(map[string]uint8),
		sounding: make(map[noteKey]int),
		offs:     make(map[int]scheduler.Timer),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OpenOutput opens the output port best matching name.
func OpenOutput(name string, opts ...OutputOption) (*Output, error) {
	port, err := findOut(name, DefaultPortTimeout)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("midi: open %s: %w", port.String(), err)
	}
	debug.Log("midi", "output %s", port.String())
	o := NewOutput(send, opts...)
	o.closer = port.Close
	return o, nil
}

// Note is the MIDI rendering of one event.
type Note struct {
	Channel  uint8 // 0-based
	Key      uint8
	Velocity uint8
	Duration time.Duration
}

// NoteFor converts event params to a note. It reports false when the event
// has no numeric `n`.
func NoteFor(streamID string, params map[string]any, channels map[string]uint8) (Note, bool) {
	n, ok := pattern.ToFloat(params[ParamNote])
	if !ok || math.IsNaN(n) {
		return Note{}, false
	}
	note := Note{
		Key:      clamp7(n),
		Velocity: DefaultVelocity,
		Duration: DefaultDuration,
	}
	if v, ok := pattern.ToFloat(params[ParamVelocity]); ok {
		if v <= 1 {
			v *= 127 // normalised
		}
		note.Velocity = clamp7(v)
	}
	if ch, ok := pattern.ToFloat(params[ParamChannel]); ok && ch >= 1 && ch <= 16 {
		note.Channel = uint8(ch) - 1
	} else if ch, ok := channels[streamID]; ok {
		note.Channel = ch
	}
	if d, ok := pattern.ToFloat(params[ParamDuration]); ok && d > 0 {
		note.Duration = time.Duration(d * float64(time.Millisecond))
	}
	return note, true
}

func clamp7(v float64) uint8 {
	return uint8(max(0, min(127, math.Round(v))))
}

// Dispatch implements scheduler.Sink.
func (o *Output) Dispatch(d scheduler.Dispatch) {
	if d.Event.Mutation {
		return
	}
	note, ok := NoteFor(d.Event.Stream, d.Event.Params, o.channels)
	if !ok {
		debug.LogEvery(50, "midi", "%s cycle %.4f: no note", d.Event.Stream, d.Cycle)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	key := noteKey{note.Channel, note.Key}
	if o.sounding[key] > 0 {
		// retrigger: close the sounding note first so the NoteOn is heard
		o.write(gomidi.NoteOff(key.ch, key.key))
	}
	if !o.write(gomidi.NoteOn(note.Channel, note.Key, note.Velocity)) {
		return
	}
	o.sounding[key]++

	o.nextID++
	id := o.nextID
	o.offs[id] = o.clock.At(d.At.Add(note.Duration), func() { o.release(id, key) })
}

func (o *Output) release(id int, key noteKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.offs[id]; !ok {
		return
	}
	delete(o.offs, id)
	o.sounding[key]--
	if o.sounding[key] > 0 {
		return
	}
	delete(o.sounding, key)
	o.write(gomidi.NoteOff(key.ch, key.key))
}

// Diagnose implements scheduler.Sink by logging.
func (o *Output) Diagnose(d scheduler.Diagnostic) {
	debug.Log("midi", "%s", d)
}

// write sends msg, counting failures. Callers hold o.mu.
func (o *Output) write(msg gomidi.Message) bool {
	if err := o.send(msg); err != nil {
		o.errs++
		debug.LogEvery(20, "midi", "send %s: %v", msg, err)
		return false
	}
	o.sent++
	return true
}

// Sent returns the number of messages written and the number that failed.
func (o *Output) Sent() (sent, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent, o.errs
}

// Close silences every sounding note and closes the port if Output opened it.
// Further dispatches are dropped.
func (o *Output) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	for id, t := range o.offs {
		t.Stop()
		delete(o.offs, id)
	}
	for key := range o.sounding {
		o.write(gomidi.NoteOff(key.ch, key.key))
		delete(o.sounding, key)
	}
	o.mu.Unlock()

	if o.closer != nil {
		return o.closer()
	}
	return nil
}
