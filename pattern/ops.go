package pattern

import "math"

// binaryOp combines a left and right number; ok=false leaves the left value untouched.
type binaryOp func(a, b float64) (float64, bool)

// Add lifts + onto p's values. other is a scalar or a Pattern; a Pattern is
// sampled at each hap's start time.
func Add(other any, p Pattern) Pattern {
	return lift(other, p, func(a, b float64) (float64, bool) { return a + b, true })
}

// Sub lifts - onto p's values (p - other).
func Sub(other any, p Pattern) Pattern {
	return lift(other, p, func(a, b float64) (float64, bool) { return a - b, true })
}

// Mul lifts * onto p's values.
func Mul(other any, p Pattern) Pattern {
	return lift(other, p, func(a, b float64) (float64, bool) { return a * b, true })
}

// Div lifts / onto p's values. Division by zero leaves the value unchanged.
func Div(other any, p Pattern) Pattern {
	return lift(other, p, func(a, b float64) (float64, bool) {
		if b == 0 {
			return 0, false
		}
		return a / b, true
	})
}

// Mod lifts a floored modulo onto p's values (the result takes the sign of other).
func Mod(other any, p Pattern) Pattern {
	return lift(other, p, func(a, b float64) (float64, bool) {
		if b == 0 {
			return 0, false
		}
		return a - b*math.Floor(a/b), true
	})
}

// Pow lifts exponentiation onto p's values.
func Pow(other any, p Pattern) Pattern {
	return lift(other, p, func(a, b float64) (float64, bool) {
		r := math.Pow(a, b)
		return r, !math.IsNaN(r)
	})
}

func lift(other any, p Pattern, op binaryOp) Pattern {
	rhs, patterned := other.(Pattern)
	return Pattern{query: func(st state) ([]Hap, error) {
		haps, err := p.queryAt(st)
		if err != nil {
			return nil, err
		}
		out := make([]Hap, len(haps))
		for i, h := range haps {
			out[i] = h
			right := other
			if patterned {
				v, ok, err := rhs.sampleAt(state{from: h.From, to: h.To, depth: st.depth})
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				right = v
			}
			a, aok := ToFloat(h.Value)
			b, bok := ToFloat(right)
			if !aok || !bok {
				continue
			}
			if r, ok := op(a, b); ok {
				out[i].Value = r
			}
		}
		return out, nil
	}}
}

// Ops is the chainable surface every Pattern offers. Each method forwards to
// the free function of the same name with the receiver as the final argument.
type Ops interface {
	Query(from, to float64) ([]Hap, error)
	Fast(factor float64) Pattern
	Slow(factor float64) Pattern
	Cat(values ...any) Pattern
	Seq(values ...any) Pattern
	Stack(values ...any) Pattern
	Choose(values ...any) Pattern
	Degrade() Pattern
	Fmap(fn func(any) any) Pattern
	Add(other any) Pattern
	Sub(other any) Pattern
	Mul(other any) Pattern
	Div(other any) Pattern
	Mod(other any) Pattern
	Pow(other any) Pattern
}

var _ Ops = Pattern{}

func (p Pattern) Fast(factor float64) Pattern { return Fast(factor, p) }
func (p Pattern) Slow(factor float64) Pattern { return Slow(factor, p) }

func (p Pattern) Cat(values ...any) Pattern    { return Cat(withLast(values, p)...) }
func (p Pattern) Seq(values ...any) Pattern    { return Seq(withLast(values, p)...) }
func (p Pattern) Stack(values ...any) Pattern  { return Stack(withLast(values, p)...) }
func (p Pattern) Choose(values ...any) Pattern { return Choose(withLast(values, p)...) }

func (p Pattern) Degrade() Pattern              { return Degrade(p) }
func (p Pattern) Fmap(fn func(any) any) Pattern { return Fmap(fn, p) }

func (p Pattern) Add(other any) Pattern { return Add(other, p) }
func (p Pattern) Sub(other any) Pattern { return Sub(other, p) }
func (p Pattern) Mul(other any) Pattern { return Mul(other, p) }
func (p Pattern) Div(other any) Pattern { return Div(other, p) }
func (p Pattern) Mod(other any) Pattern { return Mod(other, p) }
func (p Pattern) Pow(other any) Pattern { return Pow(other, p) }

// withLast copies values and appends p, leaving the caller's slice alone.
func withLast(values []any, p Pattern) []any {
	out := make([]any, 0, len(values)+1)
	return append(append(out, values...), p)
}
