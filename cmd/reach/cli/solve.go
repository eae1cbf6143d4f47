package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reach/internal/render"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/store"
	"github.com/felixgeelhaar/reach/internal/ui"
)

type solveOptions struct {
	target   float64
	level    int
	limit    int
	json     bool
	noSave   bool
	timeout  time.Duration
	progress bool
}

func newSolveCmd(g *globalOptions) *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve N N N N [N]",
		Short: "Find expressions that reach the target",
		Long: `Solve combines the starting numbers, each exactly once, into expressions
equal to --target. Solutions are listed simplest first. When none exists
the closest whole value reached is reported instead.`,
		Example: `  reach solve 1 2 3 4 --target 10
  reach solve 2,3,4,5,6 --target 100 --level 2 --json`,
		Args: cobra.RangeArgs(1, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, g, opts, args)
		},
	}
	cmd.Flags().Float64VarP(&opts.target, "target", "t", 0, "Target value (required)")
	cmd.Flags().IntVarP(&opts.level, "level", "l", -1, "Operator level 0-3 (default from config, else 0)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", -1, "Solutions to print, 0 for all (default from config, else 10)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the response as JSON")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not record the solve in history")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Give up after this long, 0 waits indefinitely (default from config, else 2m)")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Report solve status and explored states on stderr")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runSolve(cmd *cobra.Command, g *globalOptions, opts *solveOptions, args []string) error {
	numbers, err := parseNumbers(args)
	if err != nil {
		return err
	}

	obs := g.observer(cmd.ErrOrStderr())
	defer obs.Close()

	var s store.Storage
	if !opts.noSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		s = st
	}

	level, err := resolveLevel(s, opts.level)
	if err != nil {
		return err
	}
	limit := resolveLimit(s, opts.limit)

	timeout := resolveTimeout(s, opts.timeout, cmd.Flags().Changed("timeout"))

	ctx, cancel := withBudget(cmd.Context(), timeout)
	defer cancel()

	var u ui.UI
	if opts.progress {
		u = ui.NewPrinter(cmd.ErrOrStderr())
	}

	resp, err := NewRunner(obs, s, u, nil).Solve(ctx, runtime.Request{
		Numbers: numbers,
		Target:  opts.target,
		Level:   level,
	})
	if err != nil {
		return budgetError(err, timeout)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		resp.Solutions = resp.Top(limit)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(out, resp, limit)
	if s != nil {
		fmt.Fprintf(out, "Saved as %s\n", shortID(resp.ID))
	}
	return nil
}

// printResponse writes the ranked solutions as a table, or the closest
// value when nothing reached the target.
func printResponse(w io.Writer, resp runtime.Response, limit int) {
	if len(resp.Solutions) == 0 {
		if resp.Closest.Unreached() {
			fmt.Fprintln(w, "No solution.")
			return
		}
		c := resp.Closest
		fmt.Fprintf(w, "No exact solution. Closest: %s\n", render.Equation(c.Item()))
		return
	}

	shown := resp.Top(limit)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Expression", "Value", "Complexity"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for i, sol := range shown {
		table.Append([]string{
			strconv.Itoa(i + 1),
			render.Display(sol.Item()),
			render.Value(float64(sol.Value)),
			render.Value(float64(sol.Complexity)),
		})
	}
	table.Render()

	if len(shown) < len(resp.Solutions) {
		fmt.Fprintf(w, "%d of %d solutions shown\n", len(shown), len(resp.Solutions))
	}
}
