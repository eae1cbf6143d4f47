package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/felixgeelhaar/reach/internal/expr"
)

// Tolerance is how close a value must be to the target to count as a match.
const Tolerance = 1e-4

// cancelCheckInterval is how many explore calls pass between context checks
// and progress reports.
const cancelCheckInterval = 1024

// Config describes one solve.
type Config struct {
	Numbers []float64
	Target  float64
	Level   Level

	// Progress, when set, is called from the solving goroutine with the
	// running counters every cancelCheckInterval states.
	Progress func(Stats)
}

// Stats counts the work done by one solve.
type Stats struct {
	States     int `json:"states"`     // explore calls
	MemoHits   int `json:"memo_hits"`  // states skipped because their key was already expanded
	CycleHits  int `json:"cycle_hits"` // states skipped because their key was being expanded
	Leaves     int `json:"leaves"`     // single-item states evaluated
	Successors int `json:"successors"` // successor states generated
	Summations int `json:"summations"` // summation items generated
}

// search owns all mutable state of a single solve. It is never shared.
type search struct {
	ctx    context.Context
	target float64
	level  Level

	memo   map[string]struct{}
	active map[string]struct{}

	solutions []expr.Item
	closest   expr.Item

	// visit receives every generated successor. It is explore except in
	// generator tests.
	visit    func(State)
	progress func(Stats)

	stats Stats
	err   error
}

// Solve explores every way of combining cfg.Numbers and returns the ranked
// solutions together with the closest whole-number miss. The search runs
// synchronously; it stops early only when ctx is done.
func Solve(ctx context.Context, cfg Config) (Result, error) {
	if !cfg.Level.Valid() {
		return Result{}, fmt.Errorf("invalid level %d", int(cfg.Level))
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("search not started: %w", err)
	}

	s := newSearch(ctx, cfg.Target, cfg.Level)
	s.progress = cfg.Progress

	initial := make(State, len(cfg.Numbers))
	for i, n := range cfg.Numbers {
		initial[i] = expr.Number(n)
	}

	s.explore(initial)
	if s.err != nil {
		return Result{Stats: s.stats}, fmt.Errorf("search interrupted after %d states: %w", s.stats.States, s.err)
	}

	return assemble(s.solutions, s.closest, s.stats), nil
}

func newSearch(ctx context.Context, target float64, level Level) *search {
	s := &search{
		ctx:     ctx,
		target:  target,
		level:   level,
		memo:    make(map[string]struct{}),
		active:  make(map[string]struct{}),
		closest: expr.Unreached(),
	}
	s.visit = s.explore
	return s
}

func (s *search) explore(state State) {
	if s.err != nil {
		return
	}
	s.stats.States++
	if s.stats.States%cancelCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return
		}
		if s.progress != nil {
			s.progress(s.stats)
		}
	}

	key := Key(state)
	if _, ok := s.memo[key]; ok {
		s.stats.MemoHits++
		return
	}

	if len(state) == 1 {
		s.leaf(state[0])
		return
	}

	if _, ok := s.active[key]; ok {
		s.stats.CycleHits++
		return
	}
	s.active[key] = struct{}{}

	if s.level.roots() {
		s.unary(state)
	}
	if s.level.advanced() {
		s.sigma(state)
	}
	s.binary(state)

	delete(s.active, key)
	if s.err == nil {
		s.memo[key] = struct{}{}
	}
}

func (s *search) leaf(it expr.Item) {
	s.stats.Leaves++
	dist := math.Abs(it.Value - s.target)
	if dist < Tolerance {
		s.solutions = append(s.solutions, it)
		return
	}
	if expr.IsIntegral(it.Value) && dist < math.Abs(s.closest.Value-s.target) {
		s.closest = it
	}
}

// next hands a generated successor to the explorer.
func (s *search) next(state State) {
	s.stats.Successors++
	s.visit(state)
}
