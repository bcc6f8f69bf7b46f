// Package stream groups named parameter patterns under one trigger pattern.
//
// A Stream is the unit the scheduler plays. Its `e` parameter decides when
// events fire; every other parameter is sampled at each firing to build the
// event's parameter set.
package stream

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"go-cycles/mini"
	"go-cycles/pattern"
)

// Reserved parameter keys.
const (
	KeyID      = "id"   // stream identity, never stored
	KeyTrigger = "e"    // truthy haps fire events
	KeyMutate  = "m"    // truthy haps fire mutations
	KeyMute    = "mute" // truthy at trigger time suppresses the event
)

// MutationPrefix marks parameters carried by mutations. The prefix is dropped
// from the emitted key.
const MutationPrefix = "_"

// Event is one resolved firing of a stream.
type Event struct {
	Stream   string
	Time     float64 // cycle time of the trigger onset
	Duration float64 // trigger hap width in cycles
	Params   map[string]any
	Mutation bool
}

// Stream is a named, mutable table of parameter slots. Set replaces slots
// atomically; queries work on a snapshot and never observe a partial Set.
type Stream struct {
	id       string
	compiler *mini.Compiler

	mu    sync.RWMutex
	slots map[string]Slot
}

// Option configures a Stream.
type Option func(*Stream)

// WithCompiler sets the compiler used for notation strings, for example one
// carrying named bindings.
func WithCompiler(c *mini.Compiler) Option {
	return func(s *Stream) { s.compiler = c }
}

// New creates an empty stream.
func New(id string, opts ...Option) *Stream {
	s := &Stream{id: id, slots: map[string]Slot{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = mini.NewCompiler()
	}
	return s
}

// ID returns the stream's name.
func (s *Stream) ID() string { return s.id }

// Set converts every value to a slot and stores them together. Strings are
// compiled as mini-notation, patterns are stored as they are, numbers and
// bools become literals and slices become sequences. A nil value removes the
// key. If any value fails to convert nothing is changed.
func (s *Stream) Set(params map[string]any) error {
	staged := make(map[string]Slot, len(params))
	var removed []string
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if key == KeyID || key == "" {
			continue
		}
		v := params[key]
		if v == nil {
			removed = append(removed, key)
			continue
		}
		slot, err := s.toSlot(v)
		if err != nil {
			return fmt.Errorf("stream %s: param %q: %w", s.id, key, err)
		}
		staged[key] = slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.slots)
	for _, key := range removed {
		delete(next, key)
	}
	maps.Copy(next, staged)
	s.slots = next
	return nil
}

func (s *Stream) toSlot(v any) (Slot, error) {
	switch x := v.(type) {
	case pattern.Pattern:
		return Compiled{Pat: x}, nil
	case string:
		p, err := s.compiler.Compile(x)
		if err != nil {
			return nil, err
		}
		return Compiled{Pat: p, Source: x}, nil
	case bool:
		return Literal{Value: x}, nil
	case []float64:
		items := make([]any, len(x))
		for i, f := range x {
			items[i] = f
		}
		return Compiled{Pat: pattern.Seq(items...)}, nil
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			slot, err := s.toSlot(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			items[i] = slot.Pattern()
		}
		return Compiled{Pat: pattern.Seq(items...)}, nil
	}
	if f, ok := pattern.ToFloat(v); ok {
		return Literal{Value: f}, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

// Reset removes every parameter, keeping the stream's identity.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = map[string]Slot{}
}

// Keys returns the stored parameter names in sorted order.
func (s *Stream) Keys() []string {
	return slices.Sorted(maps.Keys(s.snapshot()))
}

// Slot returns the stored slot for key.
func (s *Stream) Slot(key string) (Slot, bool) {
	slot, ok := s.snapshot()[key]
	return slot, ok
}

// snapshot returns the current slot table. The map is never mutated after
// being published, so callers may read it without the lock.
func (s *Stream) snapshot() map[string]Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots
}

// Query returns one event per truthy hap of the trigger pattern in [from, to),
// in trigger order. Each parameter takes the value of its hap covering the
// trigger onset; parameters with no such hap are omitted.
func (s *Stream) Query(from, to float64) ([]Event, error) {
	return s.query(from, to, KeyTrigger, false)
}

// Mutations returns one event per truthy hap of the `m` pattern, carrying only
// the underscore-prefixed parameters.
func (s *Stream) Mutations(from, to float64) ([]Event, error) {
	return s.query(from, to, KeyMutate, true)
}

func (s *Stream) query(from, to float64, trigger string, mutation bool) ([]Event, error) {
	slots := s.snapshot()
	gate, ok := slots[trigger]
	if !ok {
		return nil, nil
	}
	haps, err := gate.Pattern().Query(from, to)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %s: %w", s.id, trigger, err)
	}

	keys := slices.Sorted(maps.Keys(slots))
	var out []Event
	for _, h := range haps {
		if !pattern.Truthy(h.Value) {
			continue
		}
		if mute, ok := slots[KeyMute]; ok && !mutation {
			v, _, err := sample(mute, h.From, h.To)
			if err != nil {
				return nil, fmt.Errorf("stream %s: %s: %w", s.id, KeyMute, err)
			}
			if pattern.Truthy(v) {
				continue
			}
		}

		params := make(map[string]any, len(keys))
		for _, key := range keys {
			name, include := paramName(key, mutation)
			if !include {
				continue
			}
			v, ok, err := sample(slots[key], h.From, h.To)
			if err != nil {
				return nil, fmt.Errorf("stream %s: %s: %w", s.id, key, err)
			}
			if ok {
				params[name] = v
			}
		}
		out = append(out, Event{
			Stream:   s.id,
			Time:     h.From,
			Duration: h.Width(),
			Params:   params,
			Mutation: mutation,
		})
	}
	return out, nil
}

// paramName maps a stored key to its emitted name and reports whether it
// belongs in events of the given kind.
func paramName(key string, mutation bool) (string, bool) {
	switch key {
	case KeyTrigger, KeyMutate, KeyMute:
		return "", false
	}
	name, prefixed := strings.CutPrefix(key, MutationPrefix)
	if mutation && !prefixed {
		return "", false
	}
	return name, name != ""
}
