package solver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/reach/internal/expr"
)

// collect runs one generator pass over state and returns the successors
// without recursing into them.
func collect(level Level, state State, pass func(*search, State)) []State {
	s := newSearch(context.Background(), 0, level)
	var out []State
	s.visit = func(next State) { out = append(out, next) }
	pass(s, state)
	return out
}

func numbers(vals ...float64) State {
	st := make(State, len(vals))
	for i, v := range vals {
		st[i] = expr.Number(v)
	}
	return st
}

// generated returns the item each successor added, keyed by its rendering.
func generated(states []State) map[string]expr.Item {
	out := make(map[string]expr.Item)
	for _, st := range states {
		it := st[len(st)-1]
		out[it.Text] = it
	}
	return out
}

func TestBinary_OperatorOrderAndSkips(t *testing.T) {
	got := collect(LevelRoots, numbers(8, 2), (*search).binary)

	var order []string
	for _, st := range got {
		require.Len(t, st, 1)
		order = append(order, st[0].Text)
	}
	assert.Equal(t, []string{
		"8+2", "8-2", "8*2", "8 / 2", "2 / 8",
		"{8}^{2}", "{2}^{8}", `\sqrt[2]{8}`, `\sqrt[8]{2}`,
	}, order)
}

func TestBinary_MultiplyByOneIsSkipped(t *testing.T) {
	got := generated(collect(LevelRoots, numbers(1, 5), (*search).binary))

	assert.Contains(t, got, "1+5")
	assert.Contains(t, got, "5-1")
	assert.NotContains(t, got, "1*5")
	assert.NotContains(t, got, "5*1")
	assert.NotContains(t, got, "5 / 1")
	assert.Contains(t, got, "1 / 5")
}

func TestBinary_KeepsRemainingItemsInOrder(t *testing.T) {
	got := collect(LevelBasic, numbers(1, 2, 3), (*search).binary)
	require.NotEmpty(t, got)

	first := got[0]
	require.Len(t, first, 2)
	assert.Equal(t, "3", first[0].Text)
	assert.Equal(t, "1+2", first[1].Text)
}

func TestBinary_FractionRule(t *testing.T) {
	// Whole remaining items: a fractional result is dropped below the roots level.
	got := generated(collect(LevelPowers, numbers(3, 2, 5), (*search).binary))
	assert.NotContains(t, got, "3 / 2")

	// A fractional item already in play lifts the restriction.
	state := State{expr.Number(3), expr.Number(2), {Value: 0.5, Text: "1 / 2", Complexity: 1.5, Kind: expr.KindProduct}}
	got = generated(collect(LevelPowers, state, (*search).binary))
	assert.Contains(t, got, "3 / 2")
}

func TestBinary_DiscardsNonFinite(t *testing.T) {
	got := collect(LevelPowers, numbers(10, 400), (*search).binary)
	for _, st := range got {
		assert.True(t, expr.Finite(st[0].Value), "%q", st[0].Text)
	}
	items := generated(got)
	assert.NotContains(t, items, "{10}^{400}")
	assert.Contains(t, items, "{400}^{10}")
}

func TestUnary_RootsAndFactorials(t *testing.T) {
	got := generated(collect(LevelAdvanced, numbers(4, 0), (*search).unary))

	assert.Contains(t, got, `\sqrt{4}`)
	assert.Contains(t, got, `\sqrt{\sqrt{4}}`)
	assert.Contains(t, got, "(4)!")
	assert.Contains(t, got, "(0)!")
	assert.NotContains(t, got, `\sqrt{0}`)
	assert.Equal(t, 24.0, got["(4)!"].Value)
	assert.Equal(t, 1.0, got["(0)!"].Value)
}

func TestUnary_FactorialNeedsAdvancedLevel(t *testing.T) {
	got := generated(collect(LevelRoots, numbers(4, 3), (*search).unary))
	assert.NotContains(t, got, "(4)!")
	assert.Len(t, got, 4)
}

func TestUnary_NoSquareRootChains(t *testing.T) {
	root := expr.Sqrt(expr.Number(16))
	got := generated(collect(LevelAdvanced, State{root, expr.Number(11)}, (*search).unary))

	assert.NotContains(t, got, `\sqrt{\sqrt{16}}`)
	assert.NotContains(t, got, `\sqrt{\sqrt{\sqrt{16}}}`)
	assert.Contains(t, got, `(\sqrt{16})!`)
	assert.NotContains(t, got, "(11)!")
}

func TestUnary_FactorialOfFactorial(t *testing.T) {
	fact := expr.Factorial(expr.Number(3))
	got := generated(collect(LevelAdvanced, State{fact, expr.Number(2)}, (*search).unary))

	require.Contains(t, got, "((3)!)!")
	assert.Equal(t, 720.0, got["((3)!)!"].Value)
	assert.Contains(t, got, `\sqrt{(3)!}`)
	assert.Contains(t, got, "(2)!")

	// 720 is past the factorial cap, so the chain ends there.
	big := expr.Factorial(fact)
	got = generated(collect(LevelAdvanced, State{big, expr.Number(2)}, (*search).unary))
	assert.NotContains(t, got, "(((3)!)!)!")
}

func TestUnary_SquareRootOfNthRoot(t *testing.T) {
	nth := expr.Root(expr.Number(81), expr.Number(2))
	require.Equal(t, expr.KindNthRoot, nth.Kind)

	got := generated(collect(LevelRoots, State{nth, expr.Number(5)}, (*search).unary))
	require.Contains(t, got, `\sqrt{\sqrt[2]{81}}`)
	assert.InDelta(t, 3.0, got[`\sqrt{\sqrt[2]{81}}`].Value, 1e-9)
}

func TestSigma_SkipsInvalidBounds(t *testing.T) {
	var got []State
	require.NotPanics(t, func() {
		got = collect(LevelAdvanced, numbers(2, 3, 4, 5, 6), (*search).sigma)
	})
	require.NotEmpty(t, got)

	items := generated(got)
	for text, it := range items {
		assert.True(t, strings.HasPrefix(text, `\sum_{i=`), text)
		assert.True(t, expr.Finite(it.Value), text)
		assert.Equal(t, expr.KindSummation, it.Kind)
	}
	for _, st := range got {
		assert.LessOrEqual(t, len(st), 4)
	}

	sum, ok := items[`\sum_{i=2}^{3} i`]
	require.True(t, ok)
	assert.Equal(t, 5.0, sum.Value)
	assert.InDelta(t, 10.0, sum.Complexity, 1e-9)

	down, ok := items[`\sum_{i=2}^{5} (6-i)`]
	require.True(t, ok)
	assert.Equal(t, 10.0, down.Value)
	assert.InDelta(t, 12.0, down.Complexity, 1e-9)

	// 4-i goes negative inside 2..5, so the pattern is rejected.
	assert.NotContains(t, items, `\sum_{i=2}^{5} (4-i)`)
	// 6*5 = 30 exceeds the upper bound cap.
	for text := range items {
		assert.NotContains(t, text, "^{5*6}")
		assert.NotContains(t, text, "^{6*5}")
	}
}

func TestSigma_BoundCandidates(t *testing.T) {
	cands := boundCandidates(numbers(5, 3))
	require.Len(t, cands, 3)
	assert.Equal(t, "5+3", cands[0].Text)
	assert.Equal(t, "5-3", cands[1].Text)
	assert.Equal(t, 2.0, cands[1].Value)
	assert.Equal(t, "5*3", cands[2].Text)

	assert.Len(t, boundCandidates(numbers(4, 4)), 2)
	assert.Len(t, boundCandidates(numbers(7)), 1)
	assert.Empty(t, boundCandidates(numbers(1, 2, 3)))
}

func TestSigma_LowerBoundTextFollowsSmallerValue(t *testing.T) {
	items := generated(collect(LevelAdvanced, numbers(9, 4), (*search).sigma))

	assert.Contains(t, items, `\sum_{i=4}^{9} i`)
	assert.NotContains(t, items, `\sum_{i=9}^{4} i`)
}

func TestSumRange(t *testing.T) {
	v, ok := sumRange(1, 4, 0, sigmaPatterns[0].eval)
	require.True(t, ok)
	assert.Equal(t, 10.0, v)

	_, ok = sumRange(9, 12, 0, sigmaPatterns[3].eval)
	assert.False(t, ok, "factorial above 10 must abort")
}
