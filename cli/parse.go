package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"go-cycles/mini"
)

// ParseResult is the JSON form of a parsed notation string.
type ParseResult struct {
	Notation string `json:"notation"`
	AST      string `json:"ast"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <notation>",
		Short: "Print the syntax tree of a notation string",
		Long: `Parse mini-notation and print its syntax tree as an S-expression.

Several arguments are joined with spaces, so quoting is optional:
  cycles parse "1 [2 3]*2"
  cycles parse 1 "<a b>"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, strings.Join(args, " "), cmd)
		},
	}
}

func runParse(opts *RootOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	node, err := mini.Parse(src)
	if err != nil {
		return formatter.Fail(ExitCompileError, "parse failed", err, mini.FormatError(err, src))
	}
	ast := mini.Dump(node)
	return formatter.Success(ParseResult{Notation: src, AST: ast}, ast)
}
