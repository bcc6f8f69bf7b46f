package midi

import (
	"fmt"
	"slices"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-cycles/debug"
)

// Capture tracks the notes held on a MIDI keyboard so they can be bound as a
// note list.
type Capture struct {
	stop func()

	mu    sync.Mutex
	held  map[uint8]bool
	chord map[uint8]bool // every key pressed since the keyboard was last fully released
}

// NewCapture returns a capture fed by Handle. Use OpenCapture for a port.
func NewCapture() *Capture {
	return &Capture{held: make(map[uint8]bool), chord: make(map[uint8]bool)}
}

// OpenCapture listens on the input port best matching name.
func OpenCapture(name string) (*Capture, error) {
	port, err := findIn(name, DefaultPortTimeout)
	if err != nil {
		return nil, err
	}
	c := NewCapture()
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, _ int32) { c.Handle(msg) })
	if err != nil {
		return nil, fmt.Errorf("midi: open input %s: %w", port.String(), err)
	}
	c.stop = stop
	debug.Log("midi", "capture %s", port.String())
	return c, nil
}

// Handle feeds one incoming message. NoteOn with velocity 0 counts as NoteOff.
func (c *Capture) Handle(msg gomidi.Message) {
	var ch, key, vel uint8
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if len(c.held) == 0 {
			clear(c.chord)
		}
		c.held[key] = true
		c.chord[key] = true
	case msg.GetNoteEnd(&ch, &key):
		delete(c.held, key)
	}
}

func sorted(keys map[uint8]bool) []float64 {
	out := make([]float64, 0, len(keys))
	for k := range keys {
		out = append(out, float64(k))
	}
	slices.Sort(out)
	return out
}

// Held returns the notes down right now, lowest first.
func (c *Capture) Held() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sorted(c.held)
}

// Chord returns every note pressed since the keyboard was last fully
// released, lowest first. It keeps the chord after the keys come up.
func (c *Capture) Chord() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sorted(c.chord)
}

// Close stops listening.
func (c *Capture) Close() error {
	if c.stop != nil {
		c.stop()
	}
	return nil
}
