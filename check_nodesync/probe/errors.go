package probe

import (
	"fmt"
	"time"
)

// TimeoutError is returned when a run exceeds its overall timeout.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return "Timeout: check execution aborted after " + formatSeconds(e.After)
}

// formatSeconds renders whole-second durations the way the CLI flag takes
// them ("60s" rather than "1m0s").
func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return d.String()
}
