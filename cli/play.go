package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-cycles/journal"
	"go-cycles/midi"
	"go-cycles/scheduler"
	"go-cycles/session"
	"go-cycles/tui"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Tempo    float64
	Port     string
	Journal  string
	NoTUI    bool
	Duration time.Duration
}

// PlayResult summarises a finished playback.
type PlayResult struct {
	Session    string `json:"session"`
	Dispatched int    `json:"dispatched"`
	Late       int    `json:"late"`
	MIDISent   int    `json:"midiSent,omitempty"`
	MIDIFailed int    `json:"midiFailed,omitempty"`
	Dropped    int    `json:"journalDropped,omitempty"`
	Skipped    int    `json:"journalSkipped,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <session.yaml>",
		Short: "Play a session",
		Long: `Load a session and play its streams with the lookahead scheduler.

Events go to the MIDI port from --port or the config file, to a SQLite
journal with --journal, and to the terminal monitor unless --no-tui.
Without the monitor, playback runs for --duration or until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Tempo, "tempo", 0, "cycles per second (default: the session's tempo)")
	cmd.Flags().StringVar(&opts.Port, "port", "", "MIDI output port (default: config midi.port)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record dispatches to this SQLite file")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "print events instead of running the monitor")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (--no-tui only)")

	return cmd
}

// player is a session wired to its scheduler and sinks.
type player struct {
	sched   *scheduler.Scheduler
	sess    *session.Session
	out     *midi.Output
	journal *journal.Journal
	feed    *tui.Feed
}

func (p *player) close() error {
	p.sched.Stop()
	var errs []error
	if p.out != nil {
		errs = append(errs, p.out.Close())
	}
	if p.journal != nil {
		errs = append(errs, p.journal.Close())
	}
	return errors.Join(errs...)
}

func (p *player) result() PlayResult {
	st := p.sched.Stats()
	r := PlayResult{Session: p.sess.ID.String(), Dispatched: st.Dispatched, Late: st.Late}
	if p.out != nil {
		r.MIDISent, r.MIDIFailed = p.out.Sent()
	}
	if p.journal != nil {
		r.Dropped = p.journal.Dropped()
		r.Skipped = p.journal.Skipped()
	}
	return r
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := loadSession(formatter, path)
	if err != nil {
		return err
	}
	p, err := opts.newPlayer(sess, formatter)
	if err != nil {
		return formatter.Fail(ExitFailure, "play", err, "")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if opts.NoTUI {
		err = p.runHeadless(ctx, opts.Duration)
	} else {
		err = p.runMonitor(ctx, opts)
	}
	if cerr := p.close(); err == nil {
		err = cerr
	}
	if err != nil {
		return formatter.Fail(ExitFailure, "play", err, "")
	}

	r := p.result()
	text := fmt.Sprintf("played %s: %d events, %d late", r.Session, r.Dispatched, r.Late)
	if p.out != nil {
		text += fmt.Sprintf(", midi %d sent %d failed", r.MIDISent, r.MIDIFailed)
	}
	return formatter.Success(r, text)
}

func (o *PlayOptions) newPlayer(sess *session.Session, formatter *OutputFormatter) (*player, error) {
	cfg := o.config()
	p := &player{sess: sess}

	var sinks scheduler.Sinks
	port := o.Port
	if port == "" {
		port = cfg.MIDI.Port
	}
	if port != "" {
		out, err := midi.OpenOutput(port, midi.WithChannels(cfg.MIDI.Channels))
		if err != nil {
			return nil, err
		}
		p.out = out
		sinks = append(sinks, out)
	}
	if o.Journal != "" {
		j, err := journal.Open(o.Journal, sess.ID.String())
		if err != nil {
			p.closeSinks()
			return nil, err
		}
		p.journal = j
		sinks = append(sinks, j)
		formatter.VerboseLog("journal %s session %s", o.Journal, sess.ID)
	}
	if o.NoTUI {
		if o.Format == "text" {
			sinks = append(sinks, &printSink{w: formatter.Writer})
		}
	} else {
		p.feed = tui.NewFeed(256)
		sinks = append(sinks, p.feed)
	}

	tempo := sess.Tempo
	if o.Tempo != 0 {
		tempo = o.Tempo
	}
	schedOpts := append(cfg.SchedulerOptions(), scheduler.WithTempo(tempo))
	p.sched = scheduler.New(scheduler.WallClock{}, sinks, schedOpts...)
	for _, st := range sess.Streams {
		p.sched.Add(st)
	}
	return p, nil
}

func (p *player) closeSinks() {
	if p.out != nil {
		_ = p.out.Close()
	}
}

func (p *player) runHeadless(ctx context.Context, d time.Duration) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := p.sched.Play(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (p *player) runMonitor(ctx context.Context, opts *PlayOptions) error {
	th, err := opts.theme()
	if err != nil {
		return err
	}
	if err := p.sched.Play(); err != nil {
		return err
	}
	m := tui.NewModel(p.sched, p.sess.Streams, p.feed, th)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// printSink writes one line per dispatch and diagnostic.
type printSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *printSink) Dispatch(d scheduler.Dispatch) {
	line := formatEvent(d.Event)
	if d.Late {
		line += fmt.Sprintf(" (late %s)", d.Lateness.Round(time.Millisecond))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line)
}

func (s *printSink) Diagnose(d scheduler.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, d.String())
}
