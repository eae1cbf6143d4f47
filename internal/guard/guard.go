package guard

import (
	"fmt"
	"math"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines what a solve request and a batch run may ask for.
type Policy struct {
	AllowedCounts    []int    `json:"allowed_counts"`
	MaxLevel         int      `json:"max_level"`
	MaxMagnitude     float64  `json:"max_magnitude"`
	MaxBatch         int      `json:"max_batch"`
	AllowedFileGlobs []string `json:"allowed_file_globs"`
}

// DefaultPolicy matches the puzzle rules: four or five starting numbers,
// operator levels 0 to 3.
var DefaultPolicy = Policy{
	AllowedCounts:    []int{4, 5},
	MaxLevel:         3,
	MaxMagnitude:     1e6,
	MaxBatch:         500,
	AllowedFileGlobs: []string{"**/*.yaml", "**/*.yml", "**/*.json"},
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
	Fatal   bool
}

func (v *Violation) Error() string {
	return v.Rule + ": " + v.Message
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckRequest verifies a solve request before it reaches the engine.
func (g *Guard) CheckRequest(numbers []float64, target float64, level int) *Violation {
	if !g.countAllowed(len(numbers)) {
		return &Violation{
			Rule:    "allowed_counts",
			Message: fmt.Sprintf("%d starting numbers given, want one of %v", len(numbers), g.policy.AllowedCounts),
			Fatal:   true,
		}
	}
	if level < 0 || level > g.policy.MaxLevel {
		return &Violation{Rule: "max_level", Message: fmt.Sprintf("level %d outside 0..%d", level, g.policy.MaxLevel), Fatal: true}
	}
	for i, n := range numbers {
		if v := g.checkValue(fmt.Sprintf("number %d", i+1), n); v != nil {
			return v
		}
	}
	return g.checkValue("target", target)
}

// CheckBatch verifies the size of a batch run.
func (g *Guard) CheckBatch(files int) *Violation {
	if g.policy.MaxBatch > 0 && files > g.policy.MaxBatch {
		return &Violation{Rule: "max_batch", Message: fmt.Sprintf("%d puzzle files exceed the limit of %d", files, g.policy.MaxBatch), Fatal: true}
	}
	return nil
}

// CheckFile verifies if a puzzle file path is within allowed globs.
func (g *Guard) CheckFile(path string) *Violation {
	for _, pattern := range g.policy.AllowedFileGlobs {
		match, err := doublestar.Match(pattern, path)
		if err == nil && match {
			return nil
		}
	}
	return &Violation{Rule: "allowed_file_globs", Message: "Not a puzzle file: " + path, Fatal: false}
}

func (g *Guard) countAllowed(n int) bool {
	if len(g.policy.AllowedCounts) == 0 {
		return n > 0
	}
	for _, c := range g.policy.AllowedCounts {
		if c == n {
			return true
		}
	}
	return false
}

func (g *Guard) checkValue(name string, v float64) *Violation {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &Violation{Rule: "finite", Message: name + " is not a finite number", Fatal: true}
	}
	if g.policy.MaxMagnitude > 0 && math.Abs(v) > g.policy.MaxMagnitude {
		return &Violation{Rule: "max_magnitude", Message: fmt.Sprintf("%s %g exceeds %g", name, v, g.policy.MaxMagnitude), Fatal: true}
	}
	return nil
}
