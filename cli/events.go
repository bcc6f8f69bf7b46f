package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"go-cycles/mini"
	"go-cycles/pattern"
	"go-cycles/session"
	"go-cycles/stream"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	From float64
	To   float64
}

// EventResult is the JSON form of one stream event.
type EventResult struct {
	Stream   string         `json:"stream"`
	Time     float64        `json:"time"`
	Duration float64        `json:"duration"`
	Params   map[string]any `json:"params"`
	Mutation bool           `json:"mutation,omitempty"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events <session.yaml>",
		Short: "List the events a session produces over a window",
		Long: `Load a session file and print the events of every stream whose onset
falls in [from, to), in time order. Mutations are marked with "m".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.From, "from", 0, "window start in cycles")
	cmd.Flags().Float64Var(&opts.To, "to", 1, "window end in cycles")

	return cmd
}

func runEvents(opts *EventsOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if !(opts.To > opts.From) {
		return formatter.Fail(ExitFailure, "invalid window",
			fmt.Errorf("--to %s must be after --from %s", pattern.FormatTime(opts.To), pattern.FormatTime(opts.From)), "")
	}

	sess, err := loadSession(formatter, path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("session %s: %d streams", sess.ID, len(sess.Streams))

	events, err := sessionEvents(sess.Streams, opts.From, opts.To)
	if err != nil {
		return formatter.Fail(ExitFailure, "query failed", err, "")
	}

	results := make([]EventResult, len(events))
	lines := make([]string, len(events))
	for i, ev := range events {
		results[i] = EventResult(ev)
		lines[i] = formatEvent(ev)
	}
	return formatter.Success(results, strings.Join(lines, "\n"))
}

// loadSession loads a session file, reporting notation and schema problems
// as compile errors.
func loadSession(formatter *OutputFormatter, path string) (*session.Session, error) {
	sess, err := session.Load(path)
	if err == nil {
		return sess, nil
	}
	var schemaErr *session.SchemaError
	if mini.IsParseError(err) || mini.IsCompileError(err) || errors.As(err, &schemaErr) {
		return nil, formatter.Fail(ExitCompileError, "invalid session", err, "")
	}
	return nil, formatter.Fail(ExitFailure, "load session", err, "")
}

// sessionEvents collects trigger and mutation events with onsets in
// [from, to) across streams, ordered by time then stream.
func sessionEvents(streams []*stream.Stream, from, to float64) ([]stream.Event, error) {
	var all []stream.Event
	for _, st := range streams {
		evs, err := st.Query(from, to)
		if err != nil {
			return nil, err
		}
		muts, err := st.Mutations(from, to)
		if err != nil {
			return nil, err
		}
		for _, ev := range append(evs, muts...) {
			if ev.Time >= from && ev.Time < to {
				all = append(all, ev)
			}
		}
	}
	slices.SortStableFunc(all, func(a, b stream.Event) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return strings.Compare(a.Stream, b.Stream)
	})
	return all, nil
}

func formatEvent(ev stream.Event) string {
	params := make([]string, 0, len(ev.Params))
	for _, k := range slices.Sorted(maps.Keys(ev.Params)) {
		params = append(params, k+"="+pattern.FormatValue(ev.Params[k]))
	}
	kind := "e"
	if ev.Mutation {
		kind = "m"
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s", pattern.FormatTime(ev.Time), ev.Stream, kind, strings.Join(params, " ")))
}
