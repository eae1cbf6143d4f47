package puzzle

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Puzzle is one solve request as stored in a puzzle file.
type Puzzle struct {
	Name    string    `json:"name" yaml:"name"`
	Numbers []float64 `json:"numbers" yaml:"numbers" validate:"min=4,max=5,dive,finite"`
	Target  float64   `json:"target" yaml:"target" validate:"finite"`
	Level   int       `json:"level" yaml:"level" validate:"gte=0,lte=3"`
}

// ValidationResult represents the outcome of a linting pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Mode is the number of starting numbers a puzzle uses.
type Mode int

const (
	ModeFour Mode = 4
	ModeFive Mode = 5
)

// TargetDigits is how many digits a target usually has in this mode.
func (m Mode) TargetDigits() int {
	if m == ModeFour {
		return 2
	}
	return 3
}

// Toggle switches between the four and five number modes.
func (m Mode) Toggle() Mode {
	if m == ModeFour {
		return ModeFive
	}
	return ModeFour
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("finite", validateFinite)
}

func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LoadFile reads a puzzle from a file (JSON or YAML). A missing name
// defaults to the file's base name.
func LoadFile(path string) (*Puzzle, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	var p Puzzle
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON puzzle: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML puzzle: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported puzzle format: %s (use .json or .yaml)", ext)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

// Validate checks a puzzle for structural errors and flags inputs that are
// legal but unusual.
func Validate(p Puzzle) ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}

	if err := validate.Struct(p); err != nil {
		res.Valid = false
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				res.Errors = append(res.Errors, describe(fe))
			}
		} else {
			res.Errors = append(res.Errors, err.Error())
		}
		return res
	}

	for i, n := range p.Numbers {
		if n != math.Trunc(n) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Number %d (%g) is not a whole number", i+1, n))
		}
	}
	if p.Target != math.Trunc(p.Target) {
		res.Warnings = append(res.Warnings, "Target is not a whole number; only exact matches can be reported")
	}

	mode := Mode(len(p.Numbers))
	if d := digits(p.Target); d != mode.TargetDigits() {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%d-number puzzles usually have a %d-digit target, got %d digits", mode, mode.TargetDigits(), d))
	}

	if mode == ModeFive && p.Level == 3 {
		res.Warnings = append(res.Warnings, "Level 3 with five numbers can take a long time")
	}

	return res
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		return fmt.Sprintf("%s must hold 4 or 5 values", fe.Field())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 3", fe.Field())
	case "finite":
		return fmt.Sprintf("%s must be a finite number", fe.Namespace())
	default:
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
}

func digits(v float64) int {
	return len(strconv.FormatFloat(math.Abs(math.Trunc(v)), 'f', -1, 64))
}
