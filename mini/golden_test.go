package mini

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"go-cycles/pattern"
)

// render dumps the tree followed by one "from to value" line per hap.
func render(t *testing.T, src string, cycles float64) []byte {
	t.Helper()
	n, err := Parse(src)
	require.NoError(t, err)
	p, err := NewCompiler().CompileNode(n, Normalize(src))
	require.NoError(t, err)
	haps, err := p.Query(0, cycles)
	require.NoError(t, err)
	pattern.Sort(haps)

	var b strings.Builder
	fmt.Fprintf(&b, "ast: %s\n", Dump(n))
	for _, h := range haps {
		fmt.Fprintf(&b, "%s %s %s\n", pattern.FormatTime(h.From), pattern.FormatTime(h.To), pattern.FormatValue(h.Value))
	}
	return []byte(b.String())
}

func TestGolden(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		cycles float64
	}{
		{"euclid_3_8", "3:8", 1},
		{"chord_cmi7", "Cmi7", 1},
		{"spread_and_note", "Cmi7.. C4", 1},
		{"bar_repeat", "1 2 |*2 3", 3},
		{"range", "60..63", 1},
		{"fast_group", "(1 2)*2 3", 1},
		{"stack_literal", "[60 64, 67]", 1},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g.Assert(t, tc.name, render(t, tc.src, tc.cycles))
		})
	}
}
