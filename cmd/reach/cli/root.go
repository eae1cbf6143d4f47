package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reach/internal/observe"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	verbose  bool
	jsonLogs bool
}

func (g *globalOptions) observer(w io.Writer) *observe.Observer {
	return observe.New(w, g.observeOptions())
}

func (g *globalOptions) observeOptions() observe.Options {
	return observe.Options{Verbose: g.verbose, JSON: g.jsonLogs}
}

// NewRootCmd builds the reach command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "reach",
		Short: "Target-number puzzle solver",
		Long: `reach combines four or five starting numbers, each used exactly once,
into expressions that hit a target. Operator levels 0 to 3 unlock powers,
roots, factorials and summations.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "Write logs as JSON")

	root.AddCommand(
		newSolveCmd(opts),
		newBatchCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(),
		newPlayCmd(opts),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
