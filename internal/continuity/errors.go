package continuity

import "fmt"

// ErrIllegalTransition is returned when a stage change is not an edge of the graph.
type ErrIllegalTransition struct {
	From Stage
	To   Stage
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal stage transition: %s -> %s", e.From, e.To)
}

// ErrInvalidSatisfaction is returned for satisfaction scores outside 1..5.
type ErrInvalidSatisfaction struct {
	Score int
}

func (e *ErrInvalidSatisfaction) Error() string {
	return fmt.Sprintf("satisfaction score out of range [1,5]: %d", e.Score)
}

// ErrUnrecognizedIntent is a non-fatal warning: the intent has no requirement
// table entry, so the default requirement set was used.
type ErrUnrecognizedIntent struct {
	IntentID string
}

func (e *ErrUnrecognizedIntent) Error() string {
	return fmt.Sprintf("unrecognized intent: %q", e.IntentID)
}

// ErrUnparseableTurn is a non-fatal warning: a history turn could not be
// attributed to the user or the assistant and was skipped.
type ErrUnparseableTurn struct {
	Index int
	Role  string
}

func (e *ErrUnparseableTurn) Error() string {
	return fmt.Sprintf("unparseable turn #%d (role %q)", e.Index, e.Role)
}
