package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/reach/internal/guard"
	"github.com/felixgeelhaar/reach/internal/puzzle"
	"github.com/felixgeelhaar/reach/internal/render"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/solver"
	"github.com/felixgeelhaar/reach/internal/store"
)

type batchOptions struct {
	parallel    int
	json        bool
	noSave      bool
	metricsFile string
	timeout     time.Duration
}

// Batch outcomes.
const (
	batchSolved   = "solved"
	batchUnsolved = "unsolved"
	batchInvalid  = "invalid"
	batchFailed   = "failed"
)

type batchResult struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	ID        string   `json:"id,omitempty"`
	Solutions int      `json:"solutions"`
	Best      string   `json:"best,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newBatchCmd(g *globalOptions) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <glob>...",
		Short: "Solve every puzzle file matching the globs",
		Long: `Batch loads puzzle files (YAML or JSON) matching the given doublestar
globs, validates them and solves them concurrently.`,
		Example: `  reach batch 'puzzles/**/*.yaml' --parallel 4
  reach batch daily.json --metrics-file reach.prom`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, opts, args)
		},
	}
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 4, "Puzzles solved at once")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not record the solves in history")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when done")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Budget per puzzle, 0 waits indefinitely (default from config, else 2m)")
	return cmd
}

func runBatch(cmd *cobra.Command, g *globalOptions, opts *batchOptions, patterns []string) error {
	if opts.parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}

	obs := g.observer(cmd.ErrOrStderr())
	defer obs.Close()
	gd := guard.New(guard.DefaultPolicy)

	files, err := expandGlobs(patterns)
	if err != nil {
		return err
	}
	var puzzles []string
	for _, f := range files {
		if v := gd.CheckFile(filepath.ToSlash(f)); v != nil {
			obs.Log().Warn().Str("path", f).Str("rule", v.Rule).Msg("skipping file")
			continue
		}
		puzzles = append(puzzles, f)
	}
	if len(puzzles) == 0 {
		return fmt.Errorf("no puzzle files match %s", strings.Join(patterns, " "))
	}
	if v := gd.CheckBatch(len(puzzles)); v != nil {
		return v
	}

	var s store.Storage
	if !opts.noSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		s = st
	}

	timeout := resolveTimeout(s, opts.timeout, cmd.Flags().Changed("timeout"))
	reg := prometheus.NewRegistry()
	runner := NewRunner(obs, s, nil, runtime.NewMetrics(reg))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]batchResult, len(puzzles))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.parallel)
	for i, path := range puzzles {
		eg.Go(func() error {
			results[i] = solveFile(egCtx, runner, path, timeout)
			return nil
		})
	}
	_ = eg.Wait()

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printBatch(out, results)
	}

	failed := 0
	for _, r := range results {
		if r.Status == batchInvalid || r.Status == batchFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d puzzles could not be solved", failed, len(results))
	}
	return nil
}

// expandGlobs resolves each pattern and returns the sorted, de-duplicated
// matches.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func solveFile(ctx context.Context, r *Runner, path string, timeout time.Duration) batchResult {
	res := batchResult{Path: path}
	log := r.Observer.Log()

	p, err := puzzle.LoadFile(path)
	if err != nil {
		res.Status, res.Error = batchInvalid, err.Error()
		return res
	}
	res.Name = p.Name

	v := puzzle.Validate(*p)
	res.Warnings = v.Warnings
	for _, w := range v.Warnings {
		log.Warn().Str("puzzle", p.Name).Msg(w)
	}
	if !v.Valid {
		res.Status, res.Error = batchInvalid, strings.Join(v.Errors, "; ")
		return res
	}

	level, err := solver.ParseLevel(p.Level)
	if err != nil {
		res.Status, res.Error = batchInvalid, err.Error()
		return res
	}

	ctx, cancel := withBudget(ctx, timeout)
	defer cancel()

	resp, err := r.Solve(ctx, runtime.Request{Numbers: p.Numbers, Target: p.Target, Level: level})
	res.ID = resp.ID
	if err != nil {
		res.Status, res.Error = batchFailed, budgetError(err, timeout).Error()
		return res
	}

	res.Solutions = len(resp.Solutions)
	res.Status, res.Best = summarize(resp)
	return res
}

// summarize picks the batch status and the expression worth showing: the
// best solution, else the closest miss with its value.
func summarize(resp runtime.Response) (status, best string) {
	switch {
	case len(resp.Solutions) > 0:
		return batchSolved, render.Display(resp.Solutions[0].Item())
	case !resp.Closest.Unreached():
		return batchUnsolved, render.Equation(resp.Closest.Item())
	default:
		return batchUnsolved, ""
	}
}

func printBatch(w io.Writer, results []batchResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Puzzle", "Status", "Solutions", "Best"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	solved := 0
	for _, r := range results {
		best := r.Best
		if r.Error != "" {
			best = r.Error
		}
		name := r.Name
		if name == "" {
			name = r.Path
		}
		table.Append([]string{name, r.Status, strconv.Itoa(r.Solutions), best})
		if r.Status == batchSolved {
			solved++
		}
	}
	table.SetFooter([]string{fmt.Sprintf("Total %d", len(results)), fmt.Sprintf("%d solved", solved), "", ""})
	table.Render()
}
