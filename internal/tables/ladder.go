package tables

import "fmt"

// Step comparison operators.
const (
	OpGreater      = "gt"
	OpGreaterEqual = "gte"
	OpLess         = "lt"
	OpLessEqual    = "lte"
)

// Step maps a comparison against Bound to Value.
type Step struct {
	Op    string  `yaml:"op"`
	Bound float64 `yaml:"bound"`
	Value float64 `yaml:"value"`
}

func (s Step) matches(x float64) bool {
	switch s.Op {
	case OpGreater:
		return x > s.Bound
	case OpGreaterEqual:
		return x >= s.Bound
	case OpLess:
		return x < s.Bound
	case OpLessEqual:
		return x <= s.Bound
	default:
		return false
	}
}

// Ladder is an ordered list of steps. The first matching step wins;
// Default applies when none match.
type Ladder struct {
	Steps   []Step  `yaml:"steps"`
	Default float64 `yaml:"default"`
}

// Resolve returns the value of the first step matching x.
func (l Ladder) Resolve(x float64) float64 {
	for _, s := range l.Steps {
		if s.matches(x) {
			return s.Value
		}
	}
	return l.Default
}

func (l Ladder) validate(name string) error {
	for i, s := range l.Steps {
		switch s.Op {
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		default:
			return fmt.Errorf("%s: step %d: unknown op %q", name, i, s.Op)
		}
	}
	return nil
}

func gt(bound, value float64) Step { return Step{Op: OpGreater, Bound: bound, Value: value} }
func lt(bound, value float64) Step { return Step{Op: OpLess, Bound: bound, Value: value} }
