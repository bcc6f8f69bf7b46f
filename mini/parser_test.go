package mini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Dump(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"60", "60"},
		{"bd", `"bd"`},
		{"bd.wav", `"bd.wav"`},
		{"-1 0.5", "(seq -1 0.5)"},
		{"1 2 3", "(seq 1 2 3)"},
		{"1*4", "(fast 4 1)"},
		{"a | b", `(cat "a" "b")`},
		{"a |", `"a"`},
		{"(a b)", `(seq "a" "b")`},
		{"1?0*16", "(fast 16 (choose 1 0))"},
		{"1 ? 2", "(choose 1 2)"},
		{"3:8", "(euclid 3 8)"},
		{"60..72", "(range 60 72)"},
		{"72..60?", "(range 72 60 random)"},
		{"[60, 64 67]", "(stack 60 (seq 64 67))"},
		{"C4 F#3 Bb-1", "(seq (note C 4) (note F# 3) (note Bb -1))"},
		{"Cmi7", "(chord C mi ext=7)"},
		{"C#ma7b9%8..", "(chord C# ma ext=7b9 len=8 spread)"},
		{"Cmi7..?*16", "(fast 16 (chord C mi ext=7 spread random))"},
		{"Cmi?Ema", "(choose (chord C mi) (chord E ma))"},
		{"Cmi? Ema", "(seq (chord C mi random) (chord E ma))"},
		{"lead..", "(spread lead)"},
		{"lead..?", "(spread lead random)"},
		{
			"0..15*16 |*2 15..0*16 |*3",
			"(cat (rep 2 (fast 16 (range 0 15))) (rep 3 (fast 16 (range 15 0))))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Dump(n))
		})
	}
}

func TestParse_NormalisesAccidentals(t *testing.T) {
	n, err := Parse("C♯mi D♭4")
	require.NoError(t, err)
	assert.Equal(t, "(seq (chord C# mi) (note Db 4))", Dump(n))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		src string
		col int
	}{
		{"", 1},
		{"   ", 1},
		{"(1 2", 5},
		{"1 2 )", 5},
		{"1 $", 3},
		{"1 . 2", 3},
		{"[1, 2", 6},
		{"1*", 3},
		{"3:", 3},
		{"| 1", 1},
		{"1 ?", 4},
		{"1 C#-", 3},
		{"C#", 1},
		{"Cm#a", 1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 1, pe.Line)
			assert.Equal(t, tt.col, pe.Col)
			assert.True(t, IsParseError(err))
			assert.False(t, IsCompileError(err))
		})
	}
}

func TestFormatError_CaretUnderColumn(t *testing.T) {
	src := "1 2 )"
	_, err := Parse(src)
	require.Error(t, err)

	want := "parse error at 1:5: unexpected \")\"\n" +
		"1 | 1 2 )\n" +
		"  |     ^"
	assert.Equal(t, want, FormatError(err, src))
}

func TestLineCol_Multiline(t *testing.T) {
	line, col := lineCol("1 2\n3 $", 6)
	assert.Equal(t, 2, line)
	assert.Equal(t, 3, col)
}
