// Package pattern implements the query-over-time algebra that every musical
// parameter is built from.
//
// A Pattern is an immutable value wrapping a pure function from a cycle window
// [from, to) to the haps active in it. Combinators never mutate their inputs;
// they return a new Pattern closing over them, so patterns can be shared freely
// between streams and goroutines.
//
// Haps whose value is itself a Pattern are flattened by the cycle wrapper: the
// nested pattern is queried over the hap's own span and its haps replace the
// original one. That substitution is what makes sequences of sequences and
// chords inside sequences work.
package pattern

import (
	"math"
)

// MaxDepth bounds how many nested patterns a single query may descend through.
const MaxDepth = 64

// state is the query window plus the current nesting depth.
type state struct {
	from, to float64
	depth    int
}

type queryFunc func(st state) ([]Hap, error)

// Pattern is an opaque, immutable query handle. The zero Pattern is silence.
type Pattern struct {
	query queryFunc
}

// New wraps a leaf query function. The function sees plain cycle windows and
// must not return haps with To <= From.
func New(q func(from, to float64) ([]Hap, error)) Pattern {
	return Pattern{query: func(st state) ([]Hap, error) {
		return q(st.from, st.to)
	}}
}

// Silence returns a pattern with no events.
func Silence() Pattern {
	return Pattern{}
}

// failing returns a pattern whose every query reports err.
func failing(err error) Pattern {
	return Pattern{query: func(state) ([]Hap, error) {
		return nil, err
	}}
}

// Query returns the haps intersecting [from, to), in traversal order.
// Callers that need chronological order should use Sort.
func (p Pattern) Query(from, to float64) ([]Hap, error) {
	return p.queryAt(state{from: from, to: to})
}

func (p Pattern) queryAt(st state) ([]Hap, error) {
	if math.IsNaN(st.from) || math.IsNaN(st.to) || math.IsInf(st.from, 0) || math.IsInf(st.to, 0) {
		return nil, precondition("query", "window [%v, %v) is not finite", st.from, st.to)
	}
	if st.to < st.from {
		return nil, precondition("query", "window end %v precedes start %v", st.to, st.from)
	}
	if st.depth > MaxDepth {
		return nil, precondition("query", "nesting deeper than %d patterns", MaxDepth)
	}
	if p.query == nil || st.from == st.to {
		return nil, nil
	}
	return p.query(st)
}

// Cycle is the foundational wrapper. The query window is widened to whole
// cycles and fn is called once per cycle n with (n, n+1). Returned haps whose
// value is a Pattern are replaced, depth first, by that pattern's haps over the
// hap's own span. Zero-width haps are dropped.
func Cycle(fn func(from, to float64) []Hap) Pattern {
	return Pattern{query: func(st state) ([]Hap, error) {
		var bag []Hap
		last := math.Ceil(st.to)
		for n := math.Floor(st.from); n < last; n++ {
			for _, h := range fn(n, n+1) {
				if !(h.To > h.From) {
					continue
				}
				inner, ok := h.Value.(Pattern)
				if !ok {
					bag = append(bag, h)
					continue
				}
				nested, err := inner.queryAt(state{from: h.From, to: h.To, depth: st.depth + 1})
				if err != nil {
					return nil, err
				}
				bag = append(bag, nested...)
			}
		}
		return bag, nil
	}}
}

// Pure repeats a single value once per cycle. A Pattern value is returned as is.
func Pure(v any) Pattern {
	if p, ok := v.(Pattern); ok {
		return p
	}
	return Cycle(func(from, to float64) []Hap {
		return []Hap{{From: from, To: to, Value: v}}
	})
}

// Sample queries p over [from, to) and returns the value of the first hap whose
// span contains from. ok is false when no hap covers that instant.
func Sample(p Pattern, from, to float64) (v any, ok bool, err error) {
	return p.sampleAt(state{from: from, to: to})
}

func (p Pattern) sampleAt(st state) (any, bool, error) {
	haps, err := p.queryAt(st)
	if err != nil {
		return nil, false, err
	}
	for _, h := range haps {
		if h.Contains(st.from) {
			return h.Value, true, nil
		}
	}
	return nil, false, nil
}
