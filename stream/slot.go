package stream

import "go-cycles/pattern"

// Slot is a stored parameter: either a Literal constant or a Compiled pattern.
// The set of implementations is closed.
type Slot interface {
	// Pattern returns the slot as a queryable pattern.
	Pattern() pattern.Pattern
	slot()
}

// Literal is a constant parameter value.
type Literal struct {
	Value any
}

// Pattern returns a pattern repeating the value every cycle.
func (l Literal) Pattern() pattern.Pattern { return pattern.Pure(l.Value) }
func (Literal) slot()                      {}

// Compiled is a parameter backed by a pattern. Source holds the notation it
// was compiled from, empty when the pattern was built directly.
type Compiled struct {
	Pat    pattern.Pattern
	Source string
}

// Pattern returns the stored pattern.
func (c Compiled) Pattern() pattern.Pattern { return c.Pat }
func (Compiled) slot()                      {}

// sample reads a slot's value at the start of [from, to).
func sample(s Slot, from, to float64) (any, bool, error) {
	if l, ok := s.(Literal); ok {
		return l.Value, l.Value != nil, nil
	}
	v, ok, err := pattern.Sample(s.Pattern(), from, to)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, v != nil, nil
}
