package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/reach/internal/expr"
	"github.com/felixgeelhaar/reach/internal/render"
	"github.com/felixgeelhaar/reach/internal/store"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past solves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			solves, err := s.ListSolves(limit)
			if err != nil {
				return fmt.Errorf("failed to list solves: %w", err)
			}
			printHistory(cmd.OutOrStdout(), solves)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Solves to list")

	cmd.AddCommand(newHistoryShowCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one solve and its solutions",
		Long:  "Show looks a solve up by its ID or any unambiguous ID prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			solve, err := s.GetSolve(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if raw {
				return printRawResponse(out, s, solve.ID)
			}

			sols, err := s.ListSolutions(solve.ID)
			if err != nil {
				return fmt.Errorf("failed to load solutions: %w", err)
			}
			printSolve(out, solve, sols)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored JSON response")
	return cmd
}

func formatNumbers(numbers []float64) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = render.Value(n)
	}
	return strings.Join(parts, " ")
}

func printHistory(w io.Writer, solves []*store.Solve) {
	if len(solves) == 0 {
		fmt.Fprintln(w, "No solves recorded yet.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "When", "Numbers", "Target", "Level", "Status", "Solutions", "Best"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, s := range solves {
		best := s.Best
		if best == "" && s.Closest != "" {
			best = "~ " + s.Closest
		}
		table.Append([]string{
			shortID(s.ID),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			formatNumbers(s.Numbers),
			render.Value(s.Target),
			strconv.Itoa(s.Level),
			s.Status,
			strconv.Itoa(s.SolutionCount),
			displayText(best),
		})
	}
	table.Render()
}

func printSolve(w io.Writer, s *store.Solve, sols []store.Solution) {
	fmt.Fprintf(w, "Solve    %s\n", s.ID)
	fmt.Fprintf(w, "When     %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Numbers  %s\n", formatNumbers(s.Numbers))
	fmt.Fprintf(w, "Target   %s\n", render.Value(s.Target))
	fmt.Fprintf(w, "Level    %d\n", s.Level)
	fmt.Fprintf(w, "Status   %s (%d ms)\n", s.Status, s.DurationMS)

	if len(sols) == 0 {
		if s.Closest != "" {
			fmt.Fprintf(w, "No exact solution. Closest: %s\n", displayText(s.Closest))
		}
		return
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Expression", "Value", "Complexity"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, sol := range sols {
		table.Append([]string{
			strconv.Itoa(sol.Rank),
			render.Display(expr.Item{Text: sol.Rendering, Value: sol.Value}),
			render.Value(sol.Value),
			render.Value(sol.Complexity),
		})
	}
	table.Render()
}

func displayText(rendering string) string {
	if out, err := render.Math(rendering); err == nil {
		return out
	}
	return rendering
}

func printRawResponse(w io.Writer, s store.Storage, solveID string) error {
	arts, err := s.ListArtifacts(solveID)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}
	for _, a := range arts {
		if a.Type != "response" {
			continue
		}
		_, content, err := s.GetArtifact(a.ID)
		if err != nil {
			return fmt.Errorf("failed to read artifact: %w", err)
		}
		_, err = w.Write(content)
		return err
	}
	return errors.New("no stored response for solve " + shortID(solveID))
}
