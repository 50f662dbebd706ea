package severity

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags the variant held by a Check.
type Kind int

const (
	KindScalar Kind = iota
	KindList
)

// Check is one observation to evaluate. Scalar checks use Value and the
// optional Warning/Critical ranges. List checks use Label, Values and the
// State raised when Values is not empty.
type Check struct {
	Kind Kind
	Name string

	Value    int
	Warning  *Range
	Critical *Range

	Label  string
	Values []string
	State  State
}

// ScalarCheck compares a count against optional warning and critical ranges.
func ScalarCheck(name string, value int, warn, crit *Range) Check {
	return Check{Kind: KindScalar, Name: name, Value: value, Warning: warn, Critical: crit}
}

// ListCheck raises state when values is not empty.
func ListCheck(name, label string, values []string, state State) Check {
	return Check{Kind: KindList, Name: name, Label: label, Values: values, State: state}
}

// Outcome is the evaluated state and message of a single check.
type Outcome struct {
	Check   Check
	State   State
	Message string
}

// Evaluate computes the outcome of c. It has no side effects.
func Evaluate(c Check) Outcome {
	switch c.Kind {
	case KindScalar:
		v := float64(c.Value)
		if c.Critical != nil && !c.Critical.Match(v) {
			return Outcome{Check: c, State: Critical, Message: fmt.Sprintf("%s is %d (outside range %s)", c.Name, c.Value, c.Critical)}
		}
		if c.Warning != nil && !c.Warning.Match(v) {
			return Outcome{Check: c, State: Warning, Message: fmt.Sprintf("%s is %d (outside range %s)", c.Name, c.Value, c.Warning)}
		}
		return Outcome{Check: c, State: OK, Message: fmt.Sprintf("%s is %d", c.Name, c.Value)}
	case KindList:
		if len(c.Values) == 0 {
			return Outcome{Check: c, State: OK, Message: "No hosts " + c.Label}
		}
		return Outcome{Check: c, State: c.State, Message: fmt.Sprintf("Hosts: %s %s", strings.Join(c.Values, ","), c.Label)}
	default:
		return Outcome{Check: c, State: Unknown, Message: fmt.Sprintf("%s: unsupported check kind %d", c.Name, c.Kind)}
	}
}

// Summary is the aggregated result of a set of checks.
type Summary struct {
	State    State
	Outcomes []Outcome
}

// Aggregate evaluates every check. The overall state is the worst outcome;
// an empty set is OK.
func Aggregate(checks []Check) Summary {
	s := Summary{State: OK, Outcomes: make([]Outcome, 0, len(checks))}
	for _, c := range checks {
		o := Evaluate(c)
		s.State = Worst(s.State, o.State)
		s.Outcomes = append(s.Outcomes, o)
	}
	return s
}

// Problems returns the non-OK outcomes, most severe first. Outcomes of
// equal state keep their check order.
func (s Summary) Problems() []Outcome {
	var problems []Outcome
	for _, o := range s.Outcomes {
		if o.State != OK {
			problems = append(problems, o)
		}
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].State > problems[j].State
	})
	return problems
}

// Scalars returns the outcomes of scalar checks in check order.
func (s Summary) Scalars() []Outcome {
	var scalars []Outcome
	for _, o := range s.Outcomes {
		if o.Check.Kind == KindScalar {
			scalars = append(scalars, o)
		}
	}
	return scalars
}
