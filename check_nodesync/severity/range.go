package severity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range is a threshold in monitoring plugin range notation:
//
//	10      0 <= v <= 10
//	10:     v >= 10
//	~:10    v <= 10
//	10:20   10 <= v <= 20
//	@10:20  alert when 10 <= v <= 20
type Range struct {
	Start  float64
	End    float64
	Invert bool
}

// ParseRange parses a range expression.
func ParseRange(spec string) (*Range, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, fmt.Errorf("empty range")
	}

	r := &Range{Start: 0, End: math.Inf(1)}
	if strings.HasPrefix(s, "@") {
		r.Invert = true
		s = s[1:]
	}

	start, end, hasColon := strings.Cut(s, ":")
	if !hasColon {
		start, end = "", start
	}

	switch start {
	case "":
	case "~":
		r.Start = math.Inf(-1)
	default:
		v, err := strconv.ParseFloat(start, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: invalid start: %w", spec, err)
		}
		r.Start = v
	}

	if end != "" {
		v, err := strconv.ParseFloat(end, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: invalid end: %w", spec, err)
		}
		r.End = v
	} else if !hasColon {
		return nil, fmt.Errorf("range %q: missing end", spec)
	}

	if r.Start > r.End {
		return nil, fmt.Errorf("range %q: start %s is greater than end %s", spec, formatFloat(r.Start), formatFloat(r.End))
	}
	return r, nil
}

// Match reports whether v lies in the region that does not raise an alert.
func (r *Range) Match(v float64) bool {
	inside := v >= r.Start && v <= r.End
	if r.Invert {
		return !inside
	}
	return inside
}

func (r *Range) String() string {
	var b strings.Builder
	if r.Invert {
		b.WriteByte('@')
	}
	switch {
	case math.IsInf(r.Start, -1):
		b.WriteString("~:")
	case r.Start != 0 || math.IsInf(r.End, 1):
		b.WriteString(formatFloat(r.Start))
		b.WriteByte(':')
	}
	if !math.IsInf(r.End, 1) {
		b.WriteString(formatFloat(r.End))
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
