package inventory

import (
	"fmt"
	"time"
)

// Report is the most recent configuration run a node sent to the inventory.
type Report struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// ConnectivityError marks a failure to talk to the inventory: unreachable
// backend, timeout or a response that could not be decoded.
type ConnectivityError struct {
	Source string
	Op     string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// connErr wraps err as a ConnectivityError. It returns nil for a nil err.
func connErr(source, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectivityError{Source: source, Op: op, Err: err}
}
