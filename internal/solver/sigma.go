package solver

import (
	"math"

	"github.com/felixgeelhaar/reach/internal/expr"
)

// Summation bounds. They exist only to keep the search tractable.
const (
	maxSigmaSpan  = 12
	maxSigmaUpper = 15
	maxSigmaGroup = 2
)

// term computes the summand for index i, or false when it is undefined.
type term func(i, k float64) (float64, bool)

// sigmaPattern is one summand shape. Patterns in sigmaPatternsK consume one
// of the remaining items as k.
type sigmaPattern struct {
	text   func(k string) string
	weight float64
	eval   term
}

var sigmaPatterns = []sigmaPattern{
	{text: fixed("i"), weight: 10, eval: func(i, _ float64) (float64, bool) { return i, true }},
	{text: fixed("i+i"), weight: 11, eval: func(i, _ float64) (float64, bool) { return i + i, true }},
	{text: fixed(`i \times i`), weight: 11, eval: func(i, _ float64) (float64, bool) { return i * i, true }},
	{text: fixed("i!"), weight: 15, eval: func(i, _ float64) (float64, bool) {
		if i > maxFactorial {
			return 0, false
		}
		return expr.Fact(i), true
	}},
	{text: fixed("i^i"), weight: 16, eval: func(i, _ float64) (float64, bool) { return expr.Power(i, i), true }},
	{text: fixed(`\sqrt{i}`), weight: 14, eval: func(i, _ float64) (float64, bool) {
		if i < 0 {
			return 0, false
		}
		return math.Sqrt(i), true
	}},
}

var sigmaPatternsK = []sigmaPattern{
	{weight: 12, text: func(k string) string { return "i+" + k }, eval: func(i, k float64) (float64, bool) { return i + k, true }},
	{weight: 13, text: func(k string) string { return `i \times ` + k }, eval: func(i, k float64) (float64, bool) { return i * k, true }},
	{weight: 12, text: func(k string) string { return k + "-i" }, eval: func(i, k float64) (float64, bool) { return k - i, k >= i }},
	{weight: 12, text: func(k string) string { return "i-" + k }, eval: func(i, k float64) (float64, bool) { return i - k, i >= k }},
	{weight: 14, text: func(k string) string { return "i^{" + k + "}" }, eval: func(i, k float64) (float64, bool) { return expr.Power(i, k), true }},
	{weight: 14, text: func(k string) string { return k + "^{i}" }, eval: func(i, k float64) (float64, bool) { return expr.Power(k, i), true }},
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

// sigma picks a start group and a disjoint end group of one or two items
// each, derives candidate bounds from them and folds the index range into a
// single summation item.
func (s *search) sigma(state State) {
	n := len(state)
	if n < 2 {
		return
	}
	for startMask := 0; startMask < 1<<n; startMask++ {
		var start, rest State
		for k := 0; k < n; k++ {
			if startMask>>k&1 == 1 {
				start = append(start, state[k])
			} else {
				rest = append(rest, state[k])
			}
		}
		if len(start) == 0 || len(start) > maxSigmaGroup {
			continue
		}
		for endMask := 0; endMask < 1<<len(rest); endMask++ {
			var end, remaining State
			for k := 0; k < len(rest); k++ {
				if endMask>>k&1 == 1 {
					end = append(end, rest[k])
				} else {
					remaining = append(remaining, rest[k])
				}
			}
			if len(end) == 0 || len(end) > maxSigmaGroup || len(start)+len(end) > n {
				continue
			}
			s.summations(start, end, remaining)
		}
	}
}

func (s *search) summations(start, end, remaining State) {
	for _, sb := range boundCandidates(start) {
		for _, eb := range boundCandidates(end) {
			lo, hi := math.Min(sb.Value, eb.Value), math.Max(sb.Value, eb.Value)
			if lo <= 0 || !expr.IsIntegral(lo) || !expr.IsIntegral(hi) || hi-lo > maxSigmaSpan || hi > maxSigmaUpper {
				continue
			}

			loText, hiText := eb.Text, sb.Text
			if sb.Value < eb.Value {
				loText, hiText = sb.Text, eb.Text
			}
			head := `\sum_{i=` + loText + "}^{" + hiText + "} "
			base := sb.Complexity + eb.Complexity

			for _, p := range sigmaPatterns {
				v, ok := sumRange(lo, hi, 0, p.eval)
				if !ok {
					continue
				}
				s.stats.Summations++
				s.next(remaining.with(expr.Item{
					Value:      v,
					Text:       head + p.text(""),
					Complexity: base + p.weight,
					Kind:       expr.KindSummation,
				}))
			}

			for ki, k := range remaining {
				others := remaining.without(ki)
				for _, p := range sigmaPatternsK {
					v, ok := sumRange(lo, hi, k.Value, p.eval)
					if !ok {
						continue
					}
					s.stats.Summations++
					s.next(others.with(expr.Item{
						Value:      v,
						Text:       head + "(" + p.text(k.Text) + ")",
						Complexity: base + k.Complexity + p.weight,
						Kind:       expr.KindSummation,
					}))
				}
			}
		}
	}
}

// boundCandidates lists the values a group can contribute as a summation
// bound: a single item itself, or for a pair their sum, positive difference
// and product.
func boundCandidates(group State) []expr.Item {
	switch len(group) {
	case 1:
		return []expr.Item{group[0]}
	case 2:
		a, b := group[0], group[1]
		base := a.Complexity + b.Complexity + expr.WeightBound
		out := []expr.Item{{Value: a.Value + b.Value, Text: a.Text + "+" + b.Text, Complexity: base, Kind: expr.KindSum}}
		if a.Value > b.Value {
			out = append(out, expr.Item{Value: a.Value - b.Value, Text: a.Text + "-" + b.Text, Complexity: base, Kind: expr.KindSum})
		}
		if b.Value > a.Value {
			out = append(out, expr.Item{Value: b.Value - a.Value, Text: b.Text + "-" + a.Text, Complexity: base, Kind: expr.KindSum})
		}
		out = append(out, expr.Item{
			Value:      a.Value * b.Value,
			Text:       expr.Wrap(a, expr.OpMul) + "*" + expr.Wrap(b, expr.OpMul),
			Complexity: base,
			Kind:       expr.KindProduct,
		})
		return out
	default:
		return nil
	}
}

// sumRange adds f(i, k) for every whole i in [lo, hi]. Any undefined or
// non-finite term makes the whole sum undefined.
func sumRange(lo, hi, k float64, f term) (float64, bool) {
	var sum float64
	for i := lo; i <= hi; i++ {
		t, ok := f(i, k)
		if !ok || !expr.Finite(t) {
			return 0, false
		}
		sum += t
	}
	return sum, expr.Finite(sum)
}
