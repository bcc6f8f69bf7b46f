package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go-cycles/mini"
	"go-cycles/pattern"
	"go-cycles/theme"
	"go-cycles/widgets"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	From     float64
	To       float64
	Timeline bool
	Width    int
}

// HapResult is the JSON form of one hap.
type HapResult struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Value any     `json:"value"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <notation>",
		Short: "Compile notation and list its haps over a window",
		Long: `Compile mini-notation and print every hap overlapping [from, to),
ordered by start time. With --timeline the haps are drawn as a strip.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.From, "from", 0, "window start in cycles")
	cmd.Flags().Float64Var(&opts.To, "to", 1, "window end in cycles")
	cmd.Flags().BoolVar(&opts.Timeline, "timeline", false, "draw the haps as a timeline strip")
	cmd.Flags().IntVar(&opts.Width, "width", 32, "timeline width in cells")

	return cmd
}

func runQuery(opts *QueryOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if !(opts.To > opts.From) {
		return formatter.Fail(ExitFailure, "invalid window",
			fmt.Errorf("--to %s must be after --from %s", pattern.FormatTime(opts.To), pattern.FormatTime(opts.From)), "")
	}

	haps, err := compileAndQuery(mini.NewCompiler(), src, opts.From, opts.To)
	if err != nil {
		if mini.IsParseError(err) || mini.IsCompileError(err) {
			return formatter.Fail(ExitCompileError, "compile failed", err, mini.FormatError(err, src))
		}
		return formatter.Fail(ExitFailure, "query failed", err, "")
	}
	formatter.VerboseLog("%d haps in [%s, %s)", len(haps), pattern.FormatTime(opts.From), pattern.FormatTime(opts.To))

	results := make([]HapResult, len(haps))
	lines := make([]string, len(haps))
	for i, h := range haps {
		results[i] = HapResult{From: h.From, To: h.To, Value: h.Value}
		lines[i] = h.String()
	}

	text := strings.Join(lines, "\n")
	if opts.Timeline {
		th, err := opts.theme()
		if err != nil {
			return formatter.Fail(ExitFailure, "load palette", err, "")
		}
		tl := widgets.Timeline{Theme: th, From: opts.From, To: opts.To, Width: opts.Width, Playhead: -1}
		text = tl.View([]widgets.Lane{{Label: "", Haps: haps, Color: th.Accent()}})
	}
	return formatter.Success(results, text)
}

// compileAndQuery compiles src and returns the haps overlapping [from, to),
// sorted by start time.
func compileAndQuery(c *mini.Compiler, src string, from, to float64) ([]pattern.Hap, error) {
	p, err := c.Compile(src)
	if err != nil {
		return nil, err
	}
	haps, err := p.Query(from, to)
	if err != nil {
		return nil, err
	}
	out := haps[:0]
	for _, h := range haps {
		if h.To > from && h.From < to {
			out = append(out, h)
		}
	}
	pattern.Sort(out)
	return out, nil
}

// theme builds the display theme from the configured palette.
func (o *RootOptions) theme() (*theme.Theme, error) {
	p, err := theme.Named(o.config().Palette)
	if err != nil {
		return nil, err
	}
	return theme.New(p), nil
}
