package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/felixgeelhaar/reach/internal/expr"
	"github.com/felixgeelhaar/reach/internal/solver"
)

// Request is what a caller submits for solving.
type Request struct {
	Numbers []float64    `json:"numbers"`
	Target  float64      `json:"target"`
	Level   solver.Level `json:"level"`
}

// Number is a float64 whose JSON form spells out the infinities and NaN,
// which plain JSON numbers cannot carry.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "Infinity":
			*n = Number(math.Inf(1))
		case "-Infinity":
			*n = Number(math.Inf(-1))
		case "NaN":
			*n = Number(math.NaN())
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Solution is one expression in a response.
type Solution struct {
	Rendering  string `json:"rendering"`
	Value      Number `json:"value"`
	Complexity Number `json:"complexity"`
}

// Item converts the solution back into an expression item.
func (s Solution) Item() expr.Item {
	return expr.Item{Value: float64(s.Value), Text: s.Rendering, Complexity: float64(s.Complexity)}
}

// Unreached reports whether s is the "nothing reached" sentinel.
func (s Solution) Unreached() bool {
	return s.Item().IsUnreached()
}

// Response is the result of one solve as delivered to callers.
type Response struct {
	ID        string       `json:"id,omitempty"`
	Solutions []Solution   `json:"solutions"`
	Closest   Solution     `json:"closest"`
	Stats     solver.Stats `json:"stats"`
}

// NewResponse builds the response for an engine result. The closest miss is
// carried only when there is no exact solution.
func NewResponse(res solver.Result) Response {
	resp := Response{
		Solutions: make([]Solution, len(res.Solutions)),
		Closest:   fromItem(expr.Unreached()),
		Stats:     res.Stats,
	}
	for i, it := range res.Solutions {
		resp.Solutions[i] = fromItem(it)
	}
	if !res.Solved() {
		resp.Closest = fromItem(res.Closest)
	}
	return resp
}

// Top returns at most n solutions.
func (r Response) Top(n int) []Solution {
	if n <= 0 || n >= len(r.Solutions) {
		return r.Solutions
	}
	return r.Solutions[:n]
}

func fromItem(it expr.Item) Solution {
	return Solution{Rendering: it.Text, Value: Number(it.Value), Complexity: Number(it.Complexity)}
}
