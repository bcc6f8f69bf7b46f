package tui

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-cycles/pattern"
	"go-cycles/scheduler"
	"go-cycles/stream"
	"go-cycles/theme"
	"go-cycles/widgets"
)

// Player is the transport the monitor drives.
type Player interface {
	Play() error
	Stop()
	Running() bool
	Tempo() float64
	SetTempo(cps float64) error
	Position() float64
	Stats() scheduler.Stats
}

const (
	refreshRate = 50 * time.Millisecond
	logSize     = 8
	tempoStep   = 0.05
	windowSize  = 2 // cycles shown in the timeline
)

var keys = []widgets.KeyBinding{
	{Key: "p", Desc: "play/stop"},
	{Key: "+/-", Desc: "tempo"},
	{Key: "1-9", Desc: "mute"},
	{Key: "q", Desc: "quit"},
}

type Model struct {
	Player  Player
	Streams []*stream.Stream
	Feed    *Feed
	Theme   *theme.Theme

	width    int
	quitting bool
	err      error
	log      []string // recent dispatches, newest last
	problems []string // recent diagnostics, newest last
}

type tickMsg time.Time

func NewModel(player Player, streams []*stream.Stream, feed *Feed, th *theme.Theme) Model {
	return Model{
		Player:  player,
		Streams: streams,
		Feed:    feed,
		Theme:   th,
		width:   80,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Feed.Listen(), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Player.Stop()
			return m, tea.Quit

		case "p", " ":
			if m.Player.Running() {
				m.Player.Stop()
			} else {
				m.err = m.Player.Play()
			}

		case "+", "=":
			m.err = m.Player.SetTempo(m.Player.Tempo() + tempoStep)

		case "-", "_":
			m.err = m.Player.SetTempo(math.Max(tempoStep, m.Player.Tempo()-tempoStep))

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			idx := int(msg.String()[0] - '1')
			m.err = m.toggleMute(idx)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, tick()

	case DispatchMsg:
		m.log = appendCapped(m.log, formatDispatch(scheduler.Dispatch(msg)), logSize)
		return m, m.Feed.Listen()

	case DiagnosticMsg:
		m.problems = appendCapped(m.problems, scheduler.Diagnostic(msg).String(), logSize/2)
		return m, m.Feed.Listen()
	}

	return m, nil
}

// toggleMute flips the `mute` parameter of the idx-th stream.
func (m Model) toggleMute(idx int) error {
	if idx < 0 || idx >= len(m.Streams) {
		return nil
	}
	st := m.Streams[idx]
	if muted(st) {
		return st.Set(map[string]any{stream.KeyMute: nil})
	}
	return st.Set(map[string]any{stream.KeyMute: true})
}

func muted(st *stream.Stream) bool {
	slot, ok := st.Slot(stream.KeyMute)
	if !ok {
		return false
	}
	lit, ok := slot.(stream.Literal)
	return ok && pattern.Truthy(lit.Value)
}

func appendCapped(list []string, s string, n int) []string {
	list = append(list, s)
	if len(list) > n {
		list = list[len(list)-n:]
	}
	return list
}

func formatDispatch(d scheduler.Dispatch) string {
	var params []string
	for _, k := range slices.Sorted(maps.Keys(d.Event.Params)) {
		params = append(params, k+"="+pattern.FormatValue(d.Event.Params[k]))
	}
	late := ""
	if d.Late {
		late = fmt.Sprintf(" late %s", d.Lateness.Round(time.Millisecond))
	}
	kind := ""
	if d.Event.Mutation {
		kind = " m"
	}
	return fmt.Sprintf("%9s %-4s%s %s%s", pattern.FormatTime(d.Cycle), d.Event.Stream, kind, strings.Join(params, " "), late)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if m.Player.Running() {
		playState = "PLAY"
	}
	pos := m.Player.Position()
	stats := m.Player.Stats()
	header := headerStyle.Render(fmt.Sprintf("go-cycles  %s  %.2fcps  cycle:%s  sent:%d late:%d",
		playState, m.Player.Tempo(), pattern.FormatTime(pos), stats.Dispatched, stats.Late))

	from := math.Floor(pos)
	tl := widgets.Timeline{
		Theme:    m.Theme,
		From:     from,
		To:       from + windowSize,
		Width:    max(16, m.width-12),
		Playhead: -1,
	}
	if m.Player.Running() {
		tl.Playhead = pos
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(tl.View(m.lanes(tl.From, tl.To)))
	out.WriteString("\n\n")
	for _, line := range m.log {
		out.WriteString(dimStyle.Render(line))
		out.WriteString("\n")
	}
	for _, line := range m.problems {
		out.WriteString(warnStyle.Render(line))
		out.WriteString("\n")
	}
	if m.err != nil {
		out.WriteString(warnStyle.Render(m.err.Error()))
		out.WriteString("\n")
	}
	if n := m.Feed.Dropped(); n > 0 {
		out.WriteString(dimStyle.Render(fmt.Sprintf("(%d monitor messages dropped)", n)))
		out.WriteString("\n")
	}
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyLine(keys)))
	return out.String()
}

// lanes queries every stream's trigger over the window for the timeline.
func (m Model) lanes(from, to float64) []widgets.Lane {
	lanes := make([]widgets.Lane, 0, len(m.Streams))
	for i, st := range m.Streams {
		lane := widgets.Lane{
			Label: st.ID(),
			Color: m.Theme.StreamColor(i, len(m.Streams)),
			Dim:   muted(st),
		}
		if lane.Dim {
			lane.Label += string(m.Theme.Symbols.Muted)
		}
		events, err := st.Query(from, to)
		if err == nil {
			for _, ev := range events {
				lane.Haps = append(lane.Haps, pattern.Hap{From: ev.Time, To: ev.Time + ev.Duration, Value: true})
			}
		}
		lanes = append(lanes, lane)
	}
	return lanes
}
