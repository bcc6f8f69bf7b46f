// Package cli is the go-cycles command line: notation inspection, session
// playback and an interactive prompt.
package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"go-cycles/config"
	"go-cycles/debug"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	Config *config.Config // loaded before any command runs
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Cyclic pattern sequencer",
		Long: `go-cycles compiles mini-notation into cyclic patterns, queries them,
and plays sessions of streams to MIDI with a lookahead scheduler.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitFailure, "invalid flag",
					fmt.Errorf("format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug log")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/go-cycles/config.json)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewPortsCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// load reads the config file and turns on debug logging if asked to.
func (o *RootOptions) load() error {
	var err error
	if o.ConfigPath != "" {
		o.Config, err = config.LoadFrom(o.ConfigPath)
	} else {
		o.Config, err = config.Load()
	}
	if err != nil {
		return WrapExitError(ExitFailure, "load config", err)
	}
	if (o.Verbose || o.Config.Debug) && !debug.Enabled() {
		if err := debug.Enable(); err != nil {
			return WrapExitError(ExitFailure, "enable debug log", err)
		}
	}
	return nil
}

// config returns the loaded config, or defaults when a command runs without
// the root (as in tests).
func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	return o.Config
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// Execute runs the command line and returns the process exit code. Errors
// that commands already reported are not printed again.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	var exitErr *ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.reported) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if debug.Enabled() {
		debug.Disable()
	}
	return GetExitCode(err)
}
