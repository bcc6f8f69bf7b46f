package mini

// Bjorklund spreads k onsets as evenly as possible over n steps. The result
// always starts with an onset when k > 0.
func Bjorklund(k, n int) []bool {
	out := make([]bool, 0, n)
	if k <= 0 || n <= 0 {
		return append(out, make([]bool, max(n, 0))...)
	}
	if k >= n {
		for range n {
			out = append(out, true)
		}
		return out
	}

	a := make([][]bool, k)
	for i := range a {
		a[i] = []bool{true}
	}
	b := make([][]bool, n-k)
	for i := range b {
		b[i] = []bool{false}
	}

	for len(b) > 1 {
		m := min(len(a), len(b))
		joined := make([][]bool, m)
		for i := range m {
			joined[i] = append(append([]bool(nil), a[i]...), b[i]...)
		}
		var rest [][]bool
		if len(a) > m {
			rest = a[m:]
		} else {
			rest = b[m:]
		}
		a, b = joined, rest
	}

	for _, g := range a {
		out = append(out, g...)
	}
	for _, g := range b {
		out = append(out, g...)
	}
	return out
}
