package solver

import (
	"sort"
	"strconv"

	"github.com/felixgeelhaar/reach/internal/expr"
)

// State is the collection of items still to be combined.
type State []expr.Item

// Key returns the canonical memo key of a state: its values, sorted and
// joined. Renderings and complexities are not part of the key.
func Key(s State) string {
	vals := make([]float64, len(s))
	for i, it := range s {
		v := it.Value
		if v == 0 {
			v = 0 // fold -0
		}
		vals[i] = v
	}
	sort.Float64s(vals)

	buf := make([]byte, 0, len(vals)*8)
	for i, v := range vals {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return string(buf)
}

// without returns the items of s except those at the given positions, in
// their original order.
func (s State) without(skip ...int) State {
	out := make(State, 0, len(s))
outer:
	for i, it := range s {
		for _, k := range skip {
			if i == k {
				continue outer
			}
		}
		out = append(out, it)
	}
	return out
}

// with returns a new state holding s followed by it.
func (s State) with(it expr.Item) State {
	out := make(State, len(s), len(s)+1)
	copy(out, s)
	return append(out, it)
}

func (s State) allIntegral() bool {
	for _, it := range s {
		if !expr.IsIntegral(it.Value) {
			return false
		}
	}
	return true
}
