package pattern

import "math"

// Signal builds a continuous pattern: every query yields one hap covering the
// whole window, valued at fn(from).
func Signal(fn func(t float64) any) Pattern {
	return Pattern{query: func(st state) ([]Hap, error) {
		return []Hap{{From: st.from, To: st.to, Value: fn(st.from)}}, nil
	}}
}

// Sine oscillates between 0 and 1 once per cycle.
func Sine() Pattern {
	return Signal(func(t float64) any {
		return 0.5 + 0.5*math.Sin(2*math.Pi*t)
	})
}

// Saw ramps from 0 to 1 once per cycle.
func Saw() Pattern {
	return Signal(func(t float64) any {
		return t - math.Floor(t)
	})
}

// Square is 0 for the first half of each cycle and 1 for the second.
func Square() Pattern {
	return Signal(func(t float64) any {
		if t-math.Floor(t) < 0.5 {
			return 0.0
		}
		return 1.0
	})
}
