package mini

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func bits(s string) []bool {
	out := make([]bool, len(s))
	for i, c := range s {
		out[i] = c == 'x'
	}
	return out
}

func TestBjorklund(t *testing.T) {
	tests := []struct {
		k, n int
		want string
	}{
		{3, 8, "x..x..x."},
		{4, 16, "x...x...x...x..."},
		{5, 8, "x.xx.xx."},
		{2, 5, "x.x.."},
		{1, 4, "x..."},
		{4, 4, "xxxx"},
		{0, 3, "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, bits(tt.want), Bjorklund(tt.k, tt.n), "%d:%d", tt.k, tt.n)
	}
}

func TestBjorklund_OnsetCount(t *testing.T) {
	for n := 1; n <= 32; n++ {
		for k := 0; k <= n; k++ {
			got := Bjorklund(k, n)
			assert.Len(t, got, n)
			ones := 0
			for _, b := range got {
				if b {
					ones++
				}
			}
			assert.Equal(t, k, ones, "%d:%d", k, n)
			if k > 0 {
				assert.True(t, got[0], "%d:%d starts with an onset", k, n)
			}
		}
	}
}
