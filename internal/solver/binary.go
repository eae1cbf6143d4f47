package solver

import "github.com/felixgeelhaar/reach/internal/expr"

// binary combines every unordered pair of items with each allowed operator.
func (s *search) binary(state State) {
	for i := 0; i < len(state); i++ {
		for j := i + 1; j < len(state); j++ {
			a, b := state[i], state[j]
			rest := state.without(i, j)

			s.apply(a, b, expr.OpAdd, rest)
			s.apply(a, b, expr.OpSub, rest)
			s.apply(b, a, expr.OpSub, rest)
			s.apply(a, b, expr.OpMul, rest)
			s.apply(a, b, expr.OpDiv, rest)
			s.apply(b, a, expr.OpDiv, rest)
			if s.level.powers() {
				s.apply(a, b, expr.OpPow, rest)
				s.apply(b, a, expr.OpPow, rest)
			}
			if s.level.roots() {
				s.apply(a, b, expr.OpRoot, rest)
				s.apply(b, a, expr.OpRoot, rest)
			}
		}
	}
}

// apply builds a op b and explores rest plus the result. Undefined,
// non-finite and degenerate results are dropped silently.
func (s *search) apply(a, b expr.Item, op expr.Op, rest State) {
	var it expr.Item

	switch op {
	case expr.OpAdd:
		it = expr.Add(a, b)
	case expr.OpSub:
		if a.Value < b.Value {
			return
		}
		it = expr.Sub(a, b)
	case expr.OpMul:
		if a.Value == 1 || b.Value == 1 {
			return
		}
		it = expr.Mul(a, b)
	case expr.OpDiv:
		if b.Value == 0 || b.Value == 1 {
			return
		}
		it = expr.Div(a, b)
	case expr.OpPow:
		if b.Value == 1 {
			return
		}
		it = expr.Pow(a, b)
	case expr.OpRoot:
		it = expr.Root(a, b)
	default:
		return
	}

	if !expr.Finite(it.Value) {
		return
	}
	if !s.level.fractions() && !expr.IsIntegral(it.Value) && rest.allIntegral() {
		return
	}
	s.next(rest.with(it))
}
