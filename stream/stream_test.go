package stream

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cycles/mini"
	"go-cycles/pattern"
)

const eps = 1e-9

func TestQuery_FiltersFalsyTriggers(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{"e": pattern.Seq(1.0, 0.0, 1.0)}))

	events, err := s.Query(0, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, 0.0, events[0].Time, eps)
	assert.InDelta(t, 2.0/3, events[1].Time, eps)
	assert.InDelta(t, 1.0/3, events[0].Duration, eps)
	assert.Equal(t, "s0", events[0].Stream)
}

func TestQuery_SamplesParamsAtTriggerOnset(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{
		"e":     "1*4",
		"n":     "60 62",
		"vel":   90,
		"cut":   pattern.Sine(),
		"inst":  "bd",
		"_pan":  0.25,
		"sleep": pattern.Silence(),
	}))

	events, err := s.Query(0, 1)
	require.NoError(t, err)
	require.Len(t, events, 4)

	notes := []any{60.0, 60.0, 62.0, 62.0}
	for i, ev := range events {
		assert.Equal(t, notes[i], ev.Params["n"])
		assert.Equal(t, 90.0, ev.Params["vel"])
		assert.Equal(t, "bd", ev.Params["inst"])
		assert.Equal(t, 0.25, ev.Params["pan"])
		assert.NotContains(t, ev.Params, "e")
		assert.NotContains(t, ev.Params, "_pan")
		assert.NotContains(t, ev.Params, "sleep")
		assert.False(t, ev.Mutation)
	}
	assert.InDelta(t, 1.0, events[1].Params["cut"], eps) // sine at 0.25
}

func TestQuery_NoTriggerNoEvents(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{"n": 60}))

	events, err := s.Query(0, 4)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestQuery_MuteSuppressesEvents(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{"e": "1*4", "mute": "0 1 0 1"}))

	events, err := s.Query(0, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, 0.0, events[0].Time, eps)
	assert.InDelta(t, 0.5, events[1].Time, eps)
	assert.NotContains(t, events[0].Params, "mute")
}

func TestQuery_DegradedTriggersDropOut(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{"e": pattern.Fast(8, pattern.Pure(1.0)).Degrade()}))

	events, err := s.Query(0, 100)
	require.NoError(t, err)
	assert.Greater(t, len(events), 200)
	assert.Less(t, len(events), 600)
}

func TestMutations_CarryOnlyPrefixedParams(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{
		"e":    "1",
		"m":    "1*8",
		"n":    "Cmi..",
		"_pan": pattern.Saw(),
	}))

	muts, err := s.Mutations(0, 1)
	require.NoError(t, err)
	require.Len(t, muts, 8)
	for i, m := range muts {
		assert.True(t, m.Mutation)
		assert.Equal(t, []string{"pan"}, keys(m.Params))
		assert.InDelta(t, float64(i)/8, m.Params["pan"], eps)
	}
}

func TestSet_FailedCompileLeavesParamsUntouched(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{"e": "1 0", "n": "60"}))

	err := s.Set(map[string]any{"e": "1*4", "n": "Cxx"})
	require.Error(t, err)
	assert.True(t, mini.IsCompileError(err))
	assert.Contains(t, err.Error(), `param "n"`)

	slot, ok := s.Slot("e")
	require.True(t, ok)
	assert.Equal(t, "1 0", slot.(Compiled).Source)

	events, err := s.Query(0, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSet_SlotKinds(t *testing.T) {
	s := New("s0")
	p := pattern.Seq(1.0, 2.0)
	require.NoError(t, s.Set(map[string]any{
		"id":   "ignored",
		"a":    p,
		"b":    "1 2",
		"c":    3,
		"d":    true,
		"f":    []float64{1, 2},
		"g":    []any{1, "3 4"},
		"gone": nil,
	}))

	assert.Equal(t, []string{"a", "b", "c", "d", "f", "g"}, s.Keys())

	slot, _ := s.Slot("a")
	assert.IsType(t, Compiled{}, slot)
	slot, _ = s.Slot("b")
	assert.Equal(t, "1 2", slot.(Compiled).Source)
	slot, _ = s.Slot("c")
	assert.Equal(t, Literal{Value: 3.0}, slot)
	slot, _ = s.Slot("d")
	assert.Equal(t, Literal{Value: true}, slot)

	haps, err := mustSlot(t, s, "g").Pattern().Query(0, 1)
	require.NoError(t, err)
	pattern.Sort(haps)
	require.Len(t, haps, 3)
	assert.Equal(t, 4.0, haps[2].Value)

	err = s.Set(map[string]any{"x": struct{}{}})
	assert.Error(t, err)

	require.NoError(t, s.Set(map[string]any{"c": nil}))
	_, ok := s.Slot("c")
	assert.False(t, ok)
}

func TestReset_KeepsIdentity(t *testing.T) {
	s := New("s3")
	require.NoError(t, s.Set(map[string]any{"e": "1", "n": 60}))
	s.Reset()
	assert.Empty(t, s.Keys())
	assert.Equal(t, "s3", s.ID())

	events, err := s.Query(0, 1)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStream_WithCompilerBindings(t *testing.T) {
	c := mini.NewCompiler(mini.WithBindings(map[string][]float64{"bass": {36, 43}}))
	s := New("s0", WithCompiler(c))
	require.NoError(t, s.Set(map[string]any{"e": "1 1", "n": "bass.."}))

	events, err := s.Query(0, 1)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 36.0, events[0].Params["n"])
	assert.Equal(t, 43.0, events[1].Params["n"])
}

func TestStream_ConcurrentSetAndQuery(t *testing.T) {
	s := New("s0")
	require.NoError(t, s.Set(map[string]any{"e": "1*4", "n": 1}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 200 {
			_ = s.Set(map[string]any{"e": "1*4", "n": i})
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			events, err := s.Query(0, 1)
			assert.NoError(t, err)
			assert.Len(t, events, 4)
			n := events[0].Params["n"]
			for _, ev := range events {
				assert.Equal(t, n, ev.Params["n"], "params from one snapshot")
			}
		}
	}()
	wg.Wait()
}

func mustSlot(t *testing.T, s *Stream, key string) Slot {
	t.Helper()
	slot, ok := s.Slot(key)
	require.True(t, ok)
	return slot
}

func keys(m map[string]any) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
