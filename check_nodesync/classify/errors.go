package classify

import (
	"errors"
	"fmt"
)

// ErrDataIntegrity matches every IntegrityError via errors.Is.
var ErrDataIntegrity = errors.New("data integrity violation")

// IntegrityKind names the impossible-data condition that was detected.
type IntegrityKind string

const (
	KindDuplicateReport  IntegrityKind = "duplicate_report"
	KindUnknownStatus    IntegrityKind = "unknown_status"
	KindMissingTimestamp IntegrityKind = "missing_timestamp"
)

// IntegrityError reports inventory data the probe cannot classify. It is
// fatal for the run, like a connectivity failure, but kept distinct so an
// operator can tell a broken probe from inconsistent inventory data.
type IntegrityError struct {
	Node   string
	Kind   IntegrityKind
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("node %s: %s: %s", e.Node, e.Kind, e.Detail)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}
