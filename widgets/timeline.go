package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-cycles/pattern"
	"go-cycles/theme"
)

// Cells lays haps over [from, to) as width cells: an onset symbol where a hap
// starts, a sustain symbol while it continues, empty elsewhere. Onsets win
// over sustains.
func Cells(haps []pattern.Hap, from, to float64, width int, sym theme.Symbols) []rune {
	cells := make([]rune, width)
	for i := range cells {
		cells[i] = sym.Empty
	}
	if width <= 0 || !(to > from) {
		return cells
	}
	step := (to - from) / float64(width)
	cell := func(t float64) int { return int(math.Floor((t - from) / step)) }

	for _, h := range haps {
		first := max(cell(h.From), 0)
		last := min(cell(math.Nextafter(h.To, math.Inf(-1))), width-1)
		for i := first; i <= last; i++ {
			if cells[i] == sym.Empty {
				cells[i] = sym.Sustain
			}
		}
	}
	for _, h := range haps {
		if h.From >= from && h.From < to {
			if i := cell(h.From); i >= 0 && i < width {
				cells[i] = sym.Onset
			}
		}
	}
	return cells
}

// PlayheadCell returns the cell under cycle pos, or -1 outside the window.
func PlayheadCell(pos, from, to float64, width int) int {
	if width <= 0 || pos < from || pos >= to {
		return -1
	}
	return min(int((pos-from)/(to-from)*float64(width)), width-1)
}

// Lane is one labelled row of a timeline.
type Lane struct {
	Label string
	Haps  []pattern.Hap
	Color lipgloss.Color
	Dim   bool // muted or inactive
}

// Timeline renders lanes over a cycle window with a ruler and optional
// playhead.
type Timeline struct {
	Theme    *theme.Theme
	From, To float64
	Width    int
	Playhead float64 // cycle position, negative for none
}

// View renders the ruler and every lane.
func (t Timeline) View(lanes []Lane) string {
	labelW := 0
	for _, l := range lanes {
		labelW = max(labelW, lipgloss.Width(l.Label))
	}

	dim := lipgloss.NewStyle().Foreground(t.Theme.Muted())
	head := lipgloss.NewStyle().Foreground(t.Theme.Cursor()).Bold(true)
	ph := PlayheadCell(t.Playhead, t.From, t.To, t.Width)

	var out strings.Builder
	out.WriteString(strings.Repeat(" ", labelW+1))
	out.WriteString(dim.Render(t.ruler()))
	for _, l := range lanes {
		out.WriteString("\n")
		out.WriteString(fmt.Sprintf("%-*s ", labelW, l.Label))

		style := lipgloss.NewStyle().Foreground(l.Color)
		if l.Dim {
			style = dim
		}
		cells := Cells(l.Haps, t.From, t.To, t.Width, t.Theme.Symbols)
		for i, c := range cells {
			if i == ph {
				out.WriteString(head.Render(string(c)))
				continue
			}
			if c == t.Theme.Symbols.Empty {
				out.WriteString(dim.Render(string(c)))
				continue
			}
			out.WriteString(style.Render(string(c)))
		}
	}
	return out.String()
}

// ruler marks each whole cycle boundary in the window with its number.
func (t Timeline) ruler() string {
	cells := []rune(strings.Repeat(" ", max(t.Width, 0)))
	if t.Width <= 0 || !(t.To > t.From) {
		return string(cells)
	}
	for c := math.Ceil(t.From); c < t.To; c++ {
		i := PlayheadCell(c, t.From, t.To, t.Width)
		for j, r := range fmt.Sprintf("%d", int(c)) {
			if i+j < len(cells) {
				cells[i+j] = r
			}
		}
	}
	return string(cells)
}
