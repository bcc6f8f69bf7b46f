package pattern

import "math"

// Fast speeds a pattern up by factor: the inner pattern is queried over the
// scaled window and the results are scaled back. factor must be positive.
func Fast(factor float64, p Pattern) Pattern {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return failing(precondition("fast", "factor must be positive and finite, got %v", factor))
	}
	return Pattern{query: func(st state) ([]Hap, error) {
		haps, err := p.queryAt(state{from: st.from * factor, to: st.to * factor, depth: st.depth})
		if err != nil {
			return nil, err
		}
		out := make([]Hap, 0, len(haps))
		for _, h := range haps {
			out = append(out, Hap{From: h.From / factor, To: h.To / factor, Value: h.Value})
		}
		return out, nil
	}}
}

// Slow is Fast by the reciprocal factor.
func Slow(factor float64, p Pattern) Pattern {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return failing(precondition("slow", "factor must be positive and finite, got %v", factor))
	}
	return Fast(1/factor, p)
}

// Cat plays one value per cycle, rotating through values.
func Cat(values ...any) Pattern {
	if len(values) == 0 {
		return Silence()
	}
	vs := append([]any(nil), values...)
	return Cycle(func(from, to float64) []Hap {
		return []Hap{{From: from, To: to, Value: vs[wrap(int(from), len(vs))]}}
	})
}

// Seq squeezes one rotation of Cat into a single cycle, so each value gets
// an equal subdivision.
func Seq(values ...any) Pattern {
	if len(values) == 0 {
		return Silence()
	}
	return Fast(float64(len(values)), Cat(values...))
}

// Stack plays every value at once, each spanning the whole cycle.
func Stack(values ...any) Pattern {
	if len(values) == 0 {
		return Silence()
	}
	vs := append([]any(nil), values...)
	return Cycle(func(from, to float64) []Hap {
		haps := make([]Hap, len(vs))
		for i, v := range vs {
			haps[i] = Hap{From: from, To: to, Value: v}
		}
		return haps
	})
}

// Choose picks one value per cycle uniformly at random. Repeated queries of
// the same cycle are not guaranteed to agree.
func Choose(values ...any) Pattern {
	return ChooseWith(DefaultRand, values...)
}

// ChooseWith is Choose drawing from src.
func ChooseWith(src RandSource, values ...any) Pattern {
	if len(values) == 0 {
		return Silence()
	}
	vs := append([]any(nil), values...)
	return Cycle(func(from, to float64) []Hap {
		return []Hap{{From: from, To: to, Value: vs[pick(src, len(vs))]}}
	})
}

// Degrade replaces each hap's value with nil with probability 0.5, so
// trigger patterns drop events at random.
func Degrade(p Pattern) Pattern {
	return DegradeWith(DefaultRand, p)
}

// DegradeWith is Degrade drawing from src.
func DegradeWith(src RandSource, p Pattern) Pattern {
	return Pattern{query: func(st state) ([]Hap, error) {
		haps, err := p.queryAt(st)
		if err != nil {
			return nil, err
		}
		out := make([]Hap, len(haps))
		for i, h := range haps {
			out[i] = h
			if src.Float64() < 0.5 {
				out[i].Value = nil
			}
		}
		return out, nil
	}}
}

// Fmap applies fn to every hap value.
func Fmap(fn func(any) any, p Pattern) Pattern {
	return Pattern{query: func(st state) ([]Hap, error) {
		haps, err := p.queryAt(st)
		if err != nil {
			return nil, err
		}
		out := make([]Hap, len(haps))
		for i, h := range haps {
			out[i] = Hap{From: h.From, To: h.To, Value: fn(h.Value)}
		}
		return out, nil
	}}
}

// wrap is a modulo that stays non-negative for negative cycles.
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
