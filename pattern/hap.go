package pattern

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Hap is a single event: a half-open span of cycle time plus a value.
// From < To always holds for haps produced by this package.
type Hap struct {
	From  float64
	To    float64
	Value any
}

// Width returns the length of the span in cycles.
func (h Hap) Width() float64 {
	return h.To - h.From
}

// Contains reports whether t falls inside [From, To).
func (h Hap) Contains(t float64) bool {
	return t >= h.From && t < h.To
}

func (h Hap) String() string {
	return fmt.Sprintf("[%s %s) %s", FormatTime(h.From), FormatTime(h.To), FormatValue(h.Value))
}

// Sort orders haps chronologically by start time, keeping traversal order for ties.
func Sort(haps []Hap) {
	slices.SortStableFunc(haps, func(a, b Hap) int {
		switch {
		case a.From < b.From:
			return -1
		case a.From > b.From:
			return 1
		}
		return 0
	})
}

// FormatTime renders a cycle time with four decimals.
func FormatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', 4, 64)
}

// FormatValue renders a hap value compactly (integral floats print without decimals).
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "~"
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
		return strconv.FormatFloat(x, 'f', 4, 64)
	case string:
		return x
	case Pattern:
		return "<pattern>"
	}
	return fmt.Sprint(v)
}

// Truthy reports whether a value should fire a trigger.
// nil, false, numeric zero and the empty string are falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := ToFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
