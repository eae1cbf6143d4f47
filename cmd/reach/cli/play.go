package cli

import (
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reach/internal/guard"
	"github.com/felixgeelhaar/reach/internal/observe"
	"github.com/felixgeelhaar/reach/internal/render"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/ui/tui"
)

type playOptions struct {
	target  float64
	level   int
	timeout time.Duration
}

func newPlayCmd(g *globalOptions) *cobra.Command {
	opts := &playOptions{}

	cmd := &cobra.Command{
		Use:   "play [N N N N [N]]",
		Short: "Start the interactive solver",
		Long: `Play opens a form for the numbers, target and level. Each submission
replaces the one still running. Logs go to reach.log in the data directory.`,
		Args: cobra.MaximumNArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, g, opts, args)
		},
	}
	cmd.Flags().Float64VarP(&opts.target, "target", "t", 0, "Pre-fill the target")
	cmd.Flags().IntVarP(&opts.level, "level", "l", -1, "Pre-fill the level (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Budget per submission, 0 waits indefinitely (default from config, else 2m)")
	return cmd
}

func runPlay(cmd *cobra.Command, g *globalOptions, opts *playOptions, args []string) error {
	numbers, err := parseNumbers(args)
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	dir, err := dataDir()
	if err != nil {
		return err
	}
	obs, err := observe.OpenFile(filepath.Join(dir, "reach.log"), g.observeOptions())
	if err != nil {
		return err
	}
	defer obs.Close()

	level, err := resolveLevel(s, -1)
	if err != nil {
		return err
	}

	rt := runtime.New(s, guard.New(guard.DefaultPolicy), obs)
	d := runtime.NewDispatcher(rt)
	defer d.Close()

	model := tui.NewModel(d, level)
	model.Budget = resolveTimeout(s, opts.timeout, cmd.Flags().Changed("timeout"))
	prefill := ""
	if opts.level >= 0 {
		prefill = fmt.Sprint(opts.level)
	}
	target := ""
	if cmd.Flags().Changed("target") {
		target = render.Value(opts.target)
	}
	model.SetInputs(formatNumbers(numbers), target, prefill)

	program := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout()))
	rt.SetUI(tui.NewTUI(program))
	rt.Events().Subscribe(runtime.EventGuardViolation, func(e runtime.Event) {
		program.Send(tui.LogMsg("rejected: " + e.Err))
	})

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
