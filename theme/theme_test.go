package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGPL(t *testing.T) {
	src := `GIMP Palette
Name: test
Columns: 2
# comment
  0   0   0	black
255 128 300	clamped
not a colour
`
	p, err := ParseGPL(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "test", p.Name)
	assert.Equal(t, []RGB{{0, 0, 0}, {255, 128, 255}}, p.Colors)

	_, err = ParseGPL(strings.NewReader("GIMP Palette\nName: empty\n"))
	assert.ErrorContains(t, err, "no colors")
}

func TestLoadGPL_NamesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sunset.gpl")
	require.NoError(t, os.WriteFile(path, []byte("GIMP Palette\n10 20 30\n"), 0644))

	p, err := Named(path)
	require.NoError(t, err)
	assert.Equal(t, "sunset", p.Name)
}

func TestNamed_Builtin(t *testing.T) {
	assert.Equal(t, []string{"default", "mono", "plasma"}, Builtin())
	for _, name := range Builtin() {
		p, err := Named(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
	}

	_, err := Named("neon")
	assert.ErrorContains(t, err, "default, mono, plasma")
}

func TestPalette_Lookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}
	assert.Equal(t, RGB{0, 0, 0}, p.Lookup(-1))
	assert.Equal(t, RGB{100, 50, 25}, p.Lookup(0.5))
	assert.Equal(t, RGB{200, 100, 50}, p.Lookup(2))
	assert.Equal(t, RGB{200, 100, 50}, p.Index(9))

	single := &Palette{Colors: []RGB{{1, 2, 3}}}
	assert.Equal(t, RGB{1, 2, 3}, single.Lookup(0.7))
}

func TestTheme_Colors(t *testing.T) {
	th := New(&Palette{Colors: []RGB{{0, 0, 0}, {255, 255, 255}}})
	assert.Equal(t, lipgloss.Color("#000000"), th.BG())
	assert.Equal(t, lipgloss.Color("#ffffff"), th.Success())
	assert.Equal(t, th.Accent(), th.StreamColor(3, 1))
	assert.Equal(t, th.FG(), th.StreamColor(0, 4))
	assert.Equal(t, "#0a141e", Hex(RGB{10, 20, 30}))
}
