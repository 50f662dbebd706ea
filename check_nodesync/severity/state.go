package severity

import (
	"fmt"
	"strings"
)

// State is a monitoring plugin state, ordered by escalation.
type State int

const (
	OK State = iota
	Warning
	Critical
	Unknown
)

func (s State) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode is the process exit status a plugin reports for s.
func (s State) ExitCode() int {
	switch s {
	case OK, Warning, Critical:
		return int(s)
	default:
		return int(Unknown)
	}
}

// Worst returns the more severe of a and b.
func Worst(a, b State) State {
	if b > a {
		return b
	}
	return a
}

// ParseState accepts a state name in any case.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok":
		return OK, nil
	case "warning", "warn":
		return Warning, nil
	case "critical", "crit":
		return Critical, nil
	case "unknown":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("unknown state %q", s)
	}
}

// MarshalText lets states appear by name in YAML and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
