package solver

import "github.com/felixgeelhaar/reach/internal/expr"

// maxFactorial bounds the operand of the factorial operator.
const maxFactorial = 10

// unary replaces one item at a time with its square root and fourth root,
// and at the advanced level with its factorial. A square or fourth root is
// never taken of another one: unary operators do not shrink the state and
// repeated square roots only reach 1 after dozens of steps. Factorials need
// no such rule since their operand is capped at maxFactorial and the fixed
// points 0!, 1! and 2! are caught by the active-path check.
func (s *search) unary(state State) {
	for i, it := range state {
		if it.Value <= 0 || it.Kind == expr.KindRoot {
			continue
		}
		rest := state.without(i)
		s.next(rest.with(expr.Sqrt(it)))
		s.next(rest.with(expr.FourthRoot(it)))
	}

	if !s.level.advanced() {
		return
	}
	for i, it := range state {
		if it.Value < 0 || it.Value > maxFactorial || !expr.IsIntegral(it.Value) {
			continue
		}
		s.next(state.without(i).with(expr.Factorial(it)))
	}
}
