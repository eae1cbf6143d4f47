// Package solver searches for expressions that combine every starting number
// exactly once into a target value.
package solver

import "fmt"

// Level selects which operators the search may use. Each level includes all
// operators of the levels below it.
type Level int

const (
	// LevelBasic allows + - * / only, on whole numbers.
	LevelBasic Level = iota
	// LevelPowers adds exponentiation.
	LevelPowers
	// LevelRoots adds square, fourth and n-th roots and lifts the whole-number restriction.
	LevelRoots
	// LevelAdvanced adds factorials and summations.
	LevelAdvanced
)

// MaxLevel is the highest supported level.
const MaxLevel = LevelAdvanced

// ParseLevel converts an integer into a Level.
func ParseLevel(n int) (Level, error) {
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("level must be between 0 and %d, got %d", MaxLevel, n)
	}
	return l, nil
}

// Valid reports whether l is one of the supported levels.
func (l Level) Valid() bool {
	return l >= LevelBasic && l <= MaxLevel
}

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelPowers:
		return "powers"
	case LevelRoots:
		return "roots"
	case LevelAdvanced:
		return "advanced"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

func (l Level) powers() bool    { return l >= LevelPowers }
func (l Level) roots() bool     { return l >= LevelRoots }
func (l Level) advanced() bool  { return l >= LevelAdvanced }
func (l Level) fractions() bool { return l >= LevelRoots }
