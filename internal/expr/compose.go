package expr

import (
	"math"
	"strings"
)

// Operator weights added to the operands' complexity.
const (
	WeightAdd       = 1.0
	WeightSub       = 1.1
	WeightMul       = 1.2
	WeightDiv       = 1.5
	WeightPow       = 4.0
	WeightRoot      = 5.0
	WeightSqrt      = 5.0
	WeightFourth    = 6.0
	WeightFactorial = 8.0
	WeightBound     = 1.0
)

// Op names a binary operator.
type Op string

const (
	OpAdd  Op = "+"
	OpSub  Op = "-"
	OpMul  Op = "*"
	OpDiv  Op = "/"
	OpPow  Op = "^"
	OpRoot Op = "root"
)

// Wrap parenthesizes an operand when the operator binds tighter than
// anything the operand's text may contain at top level. The check is a
// substring scan over text the solver itself produced.
func Wrap(it Item, op Op) string {
	low := strings.ContainsAny(it.Text, "+-")
	switch op {
	case OpMul, OpDiv:
		if low {
			return "(" + it.Text + ")"
		}
	case OpPow:
		if low || strings.ContainsAny(it.Text, "*/") {
			return "(" + it.Text + ")"
		}
	}
	return it.Text
}

// Add returns a+b.
func Add(a, b Item) Item {
	return Item{
		Value:      a.Value + b.Value,
		Text:       a.Text + "+" + b.Text,
		Complexity: a.Complexity + b.Complexity + WeightAdd,
		Kind:       KindSum,
	}
}

// Sub returns a-b. The right operand is parenthesized when it holds a sum or
// difference.
func Sub(a, b Item) Item {
	right := b.Text
	if strings.ContainsAny(right, "+-") {
		right = "(" + right + ")"
	}
	return Item{
		Value:      a.Value - b.Value,
		Text:       a.Text + "-" + right,
		Complexity: a.Complexity + b.Complexity + WeightSub,
		Kind:       KindSum,
	}
}

// Mul returns a*b.
func Mul(a, b Item) Item {
	return Item{
		Value:      a.Value * b.Value,
		Text:       Wrap(a, OpMul) + "*" + Wrap(b, OpMul),
		Complexity: a.Complexity + b.Complexity + WeightMul,
		Kind:       KindProduct,
	}
}

// Div returns a/b. Callers reject b == 0.
func Div(a, b Item) Item {
	return Item{
		Value:      a.Value / b.Value,
		Text:       Wrap(a, OpDiv) + " / " + Wrap(b, OpDiv),
		Complexity: a.Complexity + b.Complexity + WeightDiv,
		Kind:       KindProduct,
	}
}

// Pow returns a raised to b.
func Pow(a, b Item) Item {
	return Item{
		Value:      Power(a.Value, b.Value),
		Text:       "{" + Wrap(a, OpPow) + "}^{" + b.Text + "}",
		Complexity: a.Complexity + b.Complexity + WeightPow,
		Kind:       KindPower,
	}
}

// Root returns the b-th root of a.
func Root(a, b Item) Item {
	return Item{
		Value:      Power(a.Value, 1/b.Value),
		Text:       `\sqrt[` + b.Text + "]{" + a.Text + "}",
		Complexity: a.Complexity + b.Complexity + WeightRoot,
		Kind:       KindNthRoot,
	}
}

// Sqrt returns the square root of a.
func Sqrt(a Item) Item {
	return Item{
		Value:      math.Sqrt(a.Value),
		Text:       `\sqrt{` + a.Text + "}",
		Complexity: a.Complexity + WeightSqrt,
		Kind:       KindRoot,
	}
}

// FourthRoot returns the square root of the square root of a.
func FourthRoot(a Item) Item {
	return Item{
		Value:      math.Sqrt(math.Sqrt(a.Value)),
		Text:       `\sqrt{\sqrt{` + a.Text + "}}",
		Complexity: a.Complexity + WeightFourth,
		Kind:       KindRoot,
	}
}

// Factorial returns a!. Callers restrict a to whole numbers in [0, 10].
func Factorial(a Item) Item {
	return Item{
		Value:      Fact(a.Value),
		Text:       "(" + a.Text + ")!",
		Complexity: a.Complexity + WeightFactorial,
		Kind:       KindFactorial,
	}
}

// Power is math.Pow except that a NaN exponent, or a ±1 base with an infinite
// exponent, is undefined rather than 1.
func Power(x, y float64) float64 {
	if math.IsNaN(y) || (math.IsInf(y, 0) && math.Abs(x) == 1) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

// Fact computes n! for small whole n; values at or below 1 yield 1.
func Fact(n float64) float64 {
	r := 1.0
	for i := 2.0; i <= n; i++ {
		r *= i
	}
	return r
}
