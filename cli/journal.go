package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"go-cycles/journal"
	"go-cycles/pattern"
)

// JournalResult is the JSON form of one recorded session.
type JournalResult struct {
	Session    string            `json:"session"`
	Dispatches []journal.Entry   `json:"dispatches"`
	Problems   []journal.Problem `json:"problems"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "journal <file> [session-id]",
		Short: "Show what a playback journal recorded",
		Long: `Print the dispatches and diagnostics recorded for a session in a journal
file written by "play --journal". Without a session id, list the sessions.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(rootOpts, args, cmd)
		},
	}
}

func runJournal(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	if _, err := os.Stat(args[0]); err != nil {
		return formatter.Fail(ExitFailure, "open journal", err, "")
	}
	j, err := journal.Open(args[0], "")
	if err != nil {
		return formatter.Fail(ExitFailure, "open journal", err, "")
	}
	defer j.Close()

	if len(args) == 1 {
		sessions, err := j.Sessions(ctx)
		if err != nil {
			return formatter.Fail(ExitFailure, "read journal", err, "")
		}
		return formatter.Success(sessions, strings.Join(sessions, "\n"))
	}

	id := args[1]
	entries, err := j.Dispatches(ctx, id)
	if err != nil {
		return formatter.Fail(ExitFailure, "read journal", err, "")
	}
	problems, err := j.Problems(ctx, id)
	if err != nil {
		return formatter.Fail(ExitFailure, "read journal", err, "")
	}
	if len(entries) == 0 && len(problems) == 0 {
		return formatter.Fail(ExitFailure, "read journal", fmt.Errorf("no session %q", id), "")
	}

	lines := make([]string, 0, len(entries)+len(problems))
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	for _, p := range problems {
		lines = append(lines, p.Message)
	}
	return formatter.Success(JournalResult{Session: id, Dispatches: entries, Problems: problems}, strings.Join(lines, "\n"))
}

func formatEntry(e journal.Entry) string {
	params := make([]string, 0, len(e.Params))
	for _, k := range slices.Sorted(maps.Keys(e.Params)) {
		params = append(params, k+"="+pattern.FormatValue(e.Params[k]))
	}
	kind := "e"
	if e.Mutation {
		kind = "m"
	}
	line := fmt.Sprintf("%s %s %s %s", pattern.FormatTime(e.Cycle), e.Stream, kind, strings.Join(params, " "))
	if e.Late {
		line += fmt.Sprintf(" (late %s)", e.Lateness)
	}
	return strings.TrimSpace(line)
}
