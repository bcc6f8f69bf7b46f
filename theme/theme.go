package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Timeline cells
	Onset   rune // ● hap starts in this cell
	Sustain rune // ─ hap continues through this cell
	Empty   rune // · nothing sounding
	Late    rune // ! dispatched late

	// Stream list
	Playhead rune // ▶ position marker
	Muted    rune // × muted stream
	Soloed   rune // ◉ soloed stream
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Onset:   '●',
			Sustain: '─',
			Empty:   '·',
			Late:    '!',

			Playhead: '▶',
			Muted:    '×',
			Soloed:   '◉',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0
	RoleSurface = 0.1
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleCursor  = 0.6
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// StreamColor spreads n streams over the readable upper part of the palette.
func (t *Theme) StreamColor(i, n int) lipgloss.Color {
	if n <= 1 {
		return t.Accent()
	}
	return t.Color(RoleFG + (RoleSuccess-RoleFG)*float64(i%n)/float64(n-1))
}

// Hex returns the #rrggbb form of a colour.
func Hex(c RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(Hex(c))
}
