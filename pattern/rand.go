package pattern

import "math/rand/v2"

// RandSource supplies uniform floats in [0, 1). *rand.Rand satisfies it, so
// tests can pass a seeded generator.
type RandSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultRand is the entropy source used by Choose and Degrade.
var DefaultRand RandSource = globalSource{}

func pick(src RandSource, n int) int {
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
