// Package expr holds the immutable expression values the solver combines.
package expr

import (
	"math"
	"strconv"
)

// Kind is the operator at the top of an expression.
type Kind uint8

const (
	KindNumber Kind = iota
	KindSum
	KindProduct
	KindPower
	KindRoot    // square and fourth roots
	KindNthRoot // a root whose degree is another item
	KindFactorial
	KindSummation
)

// Item is one fully formed sub-expression: its value, how it was written and
// what it cost to build.
type Item struct {
	Value      float64
	Text       string
	Complexity float64
	Kind       Kind
}

// Number returns the leaf item for a starting number.
func Number(n float64) Item {
	return Item{Value: n, Text: FormatValue(n), Complexity: 0, Kind: KindNumber}
}

// Unreached is the "infinitely far" closest-match sentinel.
func Unreached() Item {
	return Item{Value: math.Inf(1), Text: "", Complexity: math.Inf(1)}
}

// IsUnreached reports whether it is the closest-match sentinel.
func (it Item) IsUnreached() bool {
	return math.IsInf(it.Value, 1) && it.Text == ""
}

// FormatValue renders a value in its shortest round-trip decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsIntegral reports whether v is a finite whole number.
func IsIntegral(v float64) bool {
	return Finite(v) && v == math.Trunc(v)
}
