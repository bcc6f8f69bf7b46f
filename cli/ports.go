package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"go-cycles/midi"
)

// PortsOptions holds flags for the ports command.
type PortsOptions struct {
	*RootOptions
	Inputs bool
}

// NewPortsCommand creates the ports command.
func NewPortsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PortsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "ports",
		Short:         "List MIDI ports",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPorts(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Inputs, "inputs", false, "list input ports instead of outputs")

	return cmd
}

func runPorts(opts *PortsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	list := midi.Ports
	if opts.Inputs {
		list = midi.InPorts
	}
	names, err := list(midi.DefaultPortTimeout)
	if err != nil {
		return formatter.Fail(ExitFailure, "list ports", err, "")
	}
	if names == nil {
		names = []string{}
	}
	text := strings.Join(names, "\n")
	if len(names) == 0 {
		text = "no ports"
	}
	return formatter.Success(names, text)
}
