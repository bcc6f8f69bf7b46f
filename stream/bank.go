package stream

import (
	"fmt"
	"sync"
)

// Stream counts in a default bank.
const (
	NumStreams = 16
	NumFX      = 4
)

// Bank is a fixed set of named streams, s0..s15 for instruments and
// fx0..fx3 for effect busses, with per-stream mute and solo.
type Bank struct {
	order   []string
	streams map[string]*Stream

	mu    sync.RWMutex
	muted map[string]bool
	solo  map[string]bool
}

// NewBank creates the default streams, each built with opts.
func NewBank(opts ...Option) *Bank {
	b := &Bank{
		streams: make(map[string]*Stream),
		muted:   make(map[string]bool),
		solo:    make(map[string]bool),
	}
	for i := range NumStreams {
		b.add(New(fmt.Sprintf("s%d", i), opts...))
	}
	for i := range NumFX {
		b.add(New(fmt.Sprintf("fx%d", i), opts...))
	}
	return b
}

func (b *Bank) add(s *Stream) {
	b.order = append(b.order, s.ID())
	b.streams[s.ID()] = s
}

// Get returns the stream named id.
func (b *Bank) Get(id string) (*Stream, bool) {
	s, ok := b.streams[id]
	return s, ok
}

// All returns every stream in bank order.
func (b *Bank) All() []*Stream {
	out := make([]*Stream, len(b.order))
	for i, id := range b.order {
		out[i] = b.streams[id]
	}
	return out
}

// SetMuted mutes or unmutes a stream.
func (b *Bank) SetMuted(id string, muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted[id] = muted
}

// SetSolo solos or unsolos a stream. While any stream is soloed only soloed
// streams are active.
func (b *Bank) SetSolo(id string, solo bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.solo[id] = solo
}

// Active returns the streams that should play: soloed ones if any are
// soloed, otherwise every unmuted stream that has parameters.
func (b *Bank) Active() []*Stream {
	b.mu.RLock()
	defer b.mu.RUnlock()

	anySolo := false
	for _, on := range b.solo {
		anySolo = anySolo || on
	}
	var out []*Stream
	for _, id := range b.order {
		s := b.streams[id]
		switch {
		case anySolo && !b.solo[id]:
			continue
		case b.muted[id]:
			continue
		case len(s.Keys()) == 0:
			continue
		}
		out = append(out, s)
	}
	return out
}

// Reset clears every stream and all mute and solo state.
func (b *Bank) Reset() {
	for _, s := range b.streams {
		s.Reset()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = make(map[string]bool)
	b.solo = make(map[string]bool)
}
