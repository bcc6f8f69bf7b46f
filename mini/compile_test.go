package mini

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cycles/pattern"
)

const eps = 1e-9

func query(t *testing.T, c *Compiler, src string, from, to float64) []pattern.Hap {
	t.Helper()
	p, err := c.Compile(src)
	if err != nil {
		t.Fatal(FormatError(err, src))
	}
	haps, err := p.Query(from, to)
	require.NoError(t, err)
	pattern.Sort(haps)
	return haps
}

func values(haps []pattern.Hap) []any {
	out := make([]any, len(haps))
	for i, h := range haps {
		out[i] = h.Value
	}
	return out
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(3, 5))
}

func TestCompile_FastRepeatsTerm(t *testing.T) {
	haps := query(t, NewCompiler(), "1*4", 0, 1)
	require.Len(t, haps, 4)
	for i, h := range haps {
		assert.Equal(t, 1.0, h.Value)
		assert.InDelta(t, float64(i)*0.25, h.From, eps)
		assert.InDelta(t, 0.25, h.Width(), eps)
	}
}

func TestCompile_Notes(t *testing.T) {
	haps := query(t, NewCompiler(), "C4 A4 C#3 Bb-1", 0, 1)
	assert.Equal(t, []any{60.0, 69.0, 49.0, 10.0}, values(haps))
}

func TestCompile_Chords(t *testing.T) {
	tests := []struct {
		src  string
		want []any
	}{
		{"Cma", []any{60.0, 64.0, 67.0}},
		{"Cmi7", []any{60.0, 63.0, 67.0, 70.0}},
		{"Cdi", []any{60.0, 63.0, 66.0}},
		{"Aau", []any{69.0, 73.0, 77.0}},
		{"Dsu", []any{62.0, 67.0, 69.0}},
		{"Cma#7", []any{60.0, 64.0, 67.0, 71.0}},
		{"Cma7b9", []any{60.0, 64.0, 67.0, 70.0, 61.0}},
		{"Bbmi", []any{70.0, 73.0, 77.0}},
		{"C#mi", []any{61.0, 64.0, 68.0}},
		{"Cpmi", []any{60.0, 63.0, 65.0, 67.0, 70.0}},
		{"Cmi%5", []any{60.0, 63.0, 67.0, 60.0, 63.0}},
		{"Cmi%2", []any{60.0, 63.0}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			haps := query(t, NewCompiler(), tt.src, 0, 1)
			assert.Equal(t, tt.want, values(haps))
			for _, h := range haps {
				assert.Equal(t, 0.0, h.From)
				assert.Equal(t, 1.0, h.To)
			}
		})
	}
}

func TestCompile_ChordSpreadIsSequence(t *testing.T) {
	haps := query(t, NewCompiler(), "Cma..", 0, 1)
	require.Len(t, haps, 3)
	assert.Equal(t, []any{60.0, 64.0, 67.0}, values(haps))
	assert.InDelta(t, 1.0/3, haps[1].From, eps)
}

func TestCompile_RandomChordPicksOneNotePerCycle(t *testing.T) {
	c := NewCompiler(WithRand(seeded()))
	haps := query(t, c, "Cma?", 0, 20)
	require.Len(t, haps, 20)
	for _, h := range haps {
		assert.Contains(t, []any{60.0, 64.0, 67.0}, h.Value)
	}
}

func TestCompile_ChooseUsesInjectedSource(t *testing.T) {
	a := query(t, NewCompiler(WithRand(seeded())), "1?2?3", 0, 16)
	b := query(t, NewCompiler(WithRand(seeded())), "1?2?3", 0, 16)
	assert.Equal(t, a, b)
	for _, h := range a {
		assert.Contains(t, []any{1.0, 2.0, 3.0}, h.Value)
	}
}

func TestCompile_Ranges(t *testing.T) {
	haps := query(t, NewCompiler(), "3..0", 0, 1)
	assert.Equal(t, []any{3.0, 2.0, 1.0, 0.0}, values(haps))

	haps = query(t, NewCompiler(WithRand(seeded())), "0..7?", 0, 10)
	require.Len(t, haps, 10)
	for _, h := range haps {
		v := h.Value.(float64)
		assert.True(t, v >= 0 && v <= 7)
	}
}

func TestCompile_Bindings(t *testing.T) {
	c := NewCompiler(WithBindings(map[string][]float64{"lead": {60, 62}}))
	haps := query(t, c, "lead..", 0, 1)
	assert.Equal(t, []any{60.0, 62.0}, values(haps))

	c.Bind("lead", []float64{1, 2, 3})
	haps = query(t, c, "lead..", 0, 1)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, values(haps))
	assert.Equal(t, []float64{1, 2, 3}, c.Bindings()["lead"])
}

func TestCompile_BarsRotate(t *testing.T) {
	haps := query(t, NewCompiler(), "a |*2 b", 0, 6)
	assert.Equal(t, []any{"a", "a", "b", "a", "a", "b"}, values(haps))
}

func TestCompile_Euclid(t *testing.T) {
	haps := query(t, NewCompiler(), "3:8", 0, 1)
	assert.Equal(t, []any{1.0, 0.0, 0.0, 1.0, 0.0, 0.0, 1.0, 0.0}, values(haps))

	haps = query(t, NewCompiler(), "0:4", 0, 1)
	assert.Equal(t, []any{0.0, 0.0, 0.0, 0.0}, values(haps))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		src   string
		col   int
		token string
	}{
		{"1 2 Cxx", 5, "Cxx"},
		{"Cmi8", 1, "Cmi8"},
		{"E#mi", 1, "E#mi"},
		{"E#4", 1, "E#"},
		{"lead..", 1, "lead"},
		{"1*0", 2, ""},
		{"1*1.5", 2, ""},
		{"a |*0 b", 1, ""},
		{"Cmi%0", 1, ""},
		{"5:3", 1, ""},
		{"3:0", 1, ""},
		{"1..2.5", 1, ""},
		{"1*100000", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Compile(tt.src)
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.col, ce.Col)
			assert.Equal(t, tt.token, ce.Token)
			assert.True(t, IsCompileError(err))
		})
	}
}

func TestCompile_ErrorLeavesCompilerUsable(t *testing.T) {
	c := NewCompiler()
	_, err := c.Compile("Cxx")
	require.Error(t, err)

	haps := query(t, c, "1 2", 0, 1)
	assert.Len(t, haps, 2)
}

func TestCompileNode_SourceOnlyPositionsErrors(t *testing.T) {
	n, err := Parse("1 2 Cma")
	require.NoError(t, err)

	for _, src := range []string{"", "1", "something else entirely"} {
		p, err := NewCompiler().CompileNode(n, src)
		require.NoError(t, err, "src %q", src)
		haps, err := p.Query(0, 1)
		require.NoError(t, err)
		assert.Len(t, haps, 5)
	}

	bad, err := Parse("1 2 Cxyz")
	require.NoError(t, err)
	_, err = NewCompiler().CompileNode(bad, "")
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}
