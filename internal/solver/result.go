package solver

import (
	"sort"

	"github.com/felixgeelhaar/reach/internal/expr"
)

// Result is the outcome of one solve.
type Result struct {
	// Solutions match the target, cheapest first, one per distinct rendering.
	Solutions []expr.Item
	// Closest is the whole-number miss nearest the target, or the
	// expr.Unreached sentinel when none was seen.
	Closest expr.Item
	Stats   Stats
}

// Solved reports whether at least one exact solution was found.
func (r Result) Solved() bool {
	return len(r.Solutions) > 0
}

// HasClosest reports whether a whole-number fallback was recorded.
func (r Result) HasClosest() bool {
	return !r.Closest.IsUnreached()
}

// assemble ranks the accepted solutions by complexity, keeping discovery
// order among ties, and drops later repeats of the same rendering.
func assemble(found []expr.Item, closest expr.Item, stats Stats) Result {
	ranked := make([]expr.Item, len(found))
	copy(ranked, found)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Complexity < ranked[j].Complexity
	})

	seen := make(map[string]struct{}, len(ranked))
	unique := ranked[:0]
	for _, it := range ranked {
		if _, dup := seen[it.Text]; dup {
			continue
		}
		seen[it.Text] = struct{}{}
		unique = append(unique, it)
	}

	return Result{Solutions: unique, Closest: closest, Stats: stats}
}
