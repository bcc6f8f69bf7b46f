package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"go-cycles/config"
	"go-cycles/midi"
	"go-cycles/mini"
	"go-cycles/pattern"
	"go-cycles/scheduler"
	"go-cycles/stream"
)

const (
	historyFile = "history"
	promptMain  = "cycles> "
)

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Port  string
	Input string
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive notation prompt",
		Long: `Start an interactive prompt. Each line is compiled as mini-notation and
queried over the current window (one cycle by default). Lines starting with
":" are commands; type :help for the list.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "MIDI output port for :play (default: config midi.port)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "MIDI keyboard for :capture (default: config midi.input)")

	return cmd
}

func runRepl(opts *ReplOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.config()
	out := cmd.OutOrStdout()

	var sink scheduler.Sink
	port := firstNonEmpty(opts.Port, cfg.MIDI.Port)
	if port != "" {
		o, err := midi.OpenOutput(port, midi.WithChannels(cfg.MIDI.Channels))
		if err != nil {
			return formatter.Fail(ExitFailure, "open midi output", err, "")
		}
		defer o.Close()
		sink = o
	}
	sched := scheduler.New(scheduler.WallClock{}, sink, cfg.SchedulerOptions()...)
	defer sched.Stop()

	r := NewRepl(out, sched)
	if input := firstNonEmpty(opts.Input, cfg.MIDI.Input); input != "" {
		c, err := midi.OpenCapture(input)
		if err != nil {
			return formatter.Fail(ExitFailure, "open midi input", err, "")
		}
		defer c.Close()
		r.Capture = c
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completeCommand)

	histPath := historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	fmt.Fprintln(out, "go-cycles repl. Type :help for commands, :quit to exit.")
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(out)
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		quit, err := r.Eval(line)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), r.describe(err, line))
		}
		if quit {
			return nil
		}
	}
}

func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, historyFile)
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

// Repl evaluates prompt lines against a stream bank and a scheduler.
type Repl struct {
	Compiler *mini.Compiler
	Bank     *stream.Bank
	Sched    *scheduler.Scheduler
	Capture  *midi.Capture // nil without a keyboard

	From, To float64

	out io.Writer
}

// NewRepl returns a repl querying [0, 1) and playing through sched.
func NewRepl(out io.Writer, sched *scheduler.Scheduler) *Repl {
	c := mini.NewCompiler()
	return &Repl{
		Compiler: c,
		Bank:     stream.NewBank(stream.WithCompiler(c)),
		Sched:    sched,
		From:     0,
		To:       1,
		out:      out,
	}
}

type replCommand struct {
	usage string
	run   func(r *Repl, args []string) error
}

var replCommands map[string]replCommand

var errQuit = errors.New("quit")

func init() {
	replCommands = map[string]replCommand{
		":help":    {":help", (*Repl).help},
		":quit":    {":quit", func(*Repl, []string) error { return errQuit }},
		":from":    {":from <a> <b>  query window in cycles", (*Repl).setWindow},
		":set":     {":set <stream> <key> <notation>", (*Repl).set},
		":unset":   {":unset <stream> <key>", (*Repl).unset},
		":show":    {":show [stream]  events over the window", (*Repl).show},
		":bind":    {":bind <name> <note>...", (*Repl).bind},
		":capture": {":capture <name>  bind the notes held on the keyboard", (*Repl).capture},
		":mute":    {":mute <stream>", func(r *Repl, a []string) error { return r.toggle(a, r.Bank.SetMuted, true) }},
		":unmute":  {":unmute <stream>", func(r *Repl, a []string) error { return r.toggle(a, r.Bank.SetMuted, false) }},
		":solo":    {":solo <stream>", func(r *Repl, a []string) error { return r.toggle(a, r.Bank.SetSolo, true) }},
		":unsolo":  {":unsolo <stream>", func(r *Repl, a []string) error { return r.toggle(a, r.Bank.SetSolo, false) }},
		":reset":   {":reset  clear every stream", (*Repl).reset},
		":play":    {":play", func(r *Repl, _ []string) error { return r.Sched.Play() }},
		":stop":    {":stop", func(r *Repl, _ []string) error { r.Sched.Stop(); return nil }},
		":tempo":   {":tempo [cps]", (*Repl).tempo},
		":status":  {":status", (*Repl).status},
	}
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, ":") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for name := range replCommands {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Eval runs one prompt line. It reports quit for :quit.
func (r *Repl) Eval(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, ":") {
		return false, r.query(line)
	}

	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	if name == ":q" {
		name = ":quit"
	}
	c, ok := replCommands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %s, type :help", fields[0])
	}
	err = c.run(r, fields[1:])
	if errors.Is(err, errQuit) {
		return true, nil
	}
	return false, err
}

// describe renders an error with a caret snippet when it points into the line.
func (r *Repl) describe(err error, line string) string {
	if !mini.IsParseError(err) && !mini.IsCompileError(err) {
		return err.Error()
	}
	src := strings.TrimSpace(line)
	if strings.HasPrefix(src, ":set ") {
		if f := strings.Fields(src); len(f) >= 4 {
			src = strings.Join(f[3:], " ")
		}
	}
	return mini.FormatError(err, src)
}

func (r *Repl) query(src string) error {
	haps, err := compileAndQuery(r.Compiler, src, r.From, r.To)
	if err != nil {
		return err
	}
	for _, h := range haps {
		fmt.Fprintln(r.out, h.String())
	}
	return nil
}

func (r *Repl) help([]string) error {
	names := make([]string, 0, len(replCommands))
	for name := range replCommands {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintln(r.out, "<notation>  compile and list haps over the window")
	for _, name := range names {
		fmt.Fprintln(r.out, replCommands[name].usage)
	}
	return nil
}

func (r *Repl) setWindow(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: :from <a> <b>")
	}
	from, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if !(to > from) {
		return fmt.Errorf("window end %s must be after start %s", args[1], args[0])
	}
	r.From, r.To = from, to
	return nil
}

func (r *Repl) stream(id string) (*stream.Stream, error) {
	st, ok := r.Bank.Get(id)
	if !ok {
		return nil, fmt.Errorf("no stream %q (s0..s%d, fx0..fx%d)", id, stream.NumStreams-1, stream.NumFX-1)
	}
	return st, nil
}

func (r *Repl) set(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: :set <stream> <key> <notation>")
	}
	st, err := r.stream(args[0])
	if err != nil {
		return err
	}
	if err := st.Set(map[string]any{args[1]: strings.Join(args[2:], " ")}); err != nil {
		return err
	}
	r.sync()
	return nil
}

func (r *Repl) unset(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: :unset <stream> <key>")
	}
	st, err := r.stream(args[0])
	if err != nil {
		return err
	}
	if err := st.Set(map[string]any{args[1]: nil}); err != nil {
		return err
	}
	r.sync()
	return nil
}

func (r *Repl) show(args []string) error {
	streams := r.Bank.Active()
	if len(args) > 0 {
		st, err := r.stream(args[0])
		if err != nil {
			return err
		}
		streams = []*stream.Stream{st}
	}
	events, err := sessionEvents(streams, r.From, r.To)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Fprintln(r.out, formatEvent(ev))
	}
	return nil
}

func (r *Repl) bind(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: :bind <name> <note>...")
	}
	notes := make([]float64, 0, len(args)-1)
	for _, a := range args[1:] {
		n, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("note %q: %w", a, err)
		}
		notes = append(notes, n)
	}
	r.Compiler.Bind(args[0], notes)
	return nil
}

func (r *Repl) capture(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: :capture <name>")
	}
	if r.Capture == nil {
		return errors.New("no MIDI input, set midi.input or pass --input")
	}
	notes := r.Capture.Chord()
	if len(notes) == 0 {
		return errors.New("no notes captured, play a chord first")
	}
	r.Compiler.Bind(args[0], notes)
	fmt.Fprintf(r.out, "%s = %s\n", args[0], formatNotes(notes))
	return nil
}

func formatNotes(notes []float64) string {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = pattern.FormatValue(n)
	}
	return strings.Join(parts, " ")
}

func (r *Repl) toggle(args []string, set func(string, bool), on bool) error {
	if len(args) != 1 {
		return errors.New("usage: expects one stream id")
	}
	if _, err := r.stream(args[0]); err != nil {
		return err
	}
	set(args[0], on)
	r.sync()
	return nil
}

func (r *Repl) reset([]string) error {
	r.Bank.Reset()
	r.sync()
	return nil
}

func (r *Repl) tempo(args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "%.4f cps\n", r.Sched.Tempo())
		return nil
	}
	cps, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("tempo: %w", err)
	}
	return r.Sched.SetTempo(cps)
}

func (r *Repl) status([]string) error {
	st := r.Sched.Stats()
	state := "stopped"
	if r.Sched.Running() {
		state = "playing"
	}
	var ids []string
	for _, s := range r.Bank.Active() {
		ids = append(ids, s.ID())
	}
	fmt.Fprintf(r.out, "%s at %.4f cps, cycle %s, %d sent, %d late, active: %s\n",
		state, r.Sched.Tempo(), pattern.FormatTime(r.Sched.Position()), st.Dispatched, st.Late, strings.Join(ids, " "))
	return nil
}

// sync makes the scheduler play exactly the bank's active streams.
func (r *Repl) sync() {
	active := make(map[string]bool)
	for _, st := range r.Bank.Active() {
		active[st.ID()] = true
	}
	for _, st := range r.Bank.All() {
		if active[st.ID()] {
			r.Sched.Add(st)
		} else {
			r.Sched.Remove(st.ID())
		}
	}
}
