package scheduler

import (
	"math"
	"time"
)

// timeline maps cycle time to clock time for one tempo segment. A tempo change
// starts a new segment anchored at the point where the old one was left.
type timeline struct {
	origin time.Time
	cycle  float64 // cycle at origin
	cps    float64
}

// CycleAt converts a clock instant to cycle time.
func (tl timeline) CycleAt(t time.Time) float64 {
	return tl.cycle + t.Sub(tl.origin).Seconds()*tl.cps
}

// TimeAt converts cycle time to a clock instant.
func (tl timeline) TimeAt(c float64) time.Time {
	secs := (c - tl.cycle) / tl.cps
	return tl.origin.Add(time.Duration(math.Round(secs * float64(time.Second))))
}

// Rebase returns a segment with a new tempo that agrees with tl at cycle c.
func (tl timeline) Rebase(c, cps float64) timeline {
	return timeline{origin: tl.TimeAt(c), cycle: c, cps: cps}
}

// CycleDuration is the clock length of one cycle.
func (tl timeline) CycleDuration() time.Duration {
	return time.Duration(math.Round(float64(time.Second) / tl.cps))
}
