package clp

// errors.go: the inconsistency signal that drives backtracking, plus
// sentinel errors for API misuse.

import (
	"errors"
	"fmt"
)

// Inconsistency is the single search-failure signal of the engine.
//
// It is returned by any bound, domain or constraint check that detects
// infeasibility and travels back up through Execute/Propagate return values
// until the goal loop in NextSolution converts it into a backtrack.
//
// An empty Label fails back to the nearest choice point that still has an
// untried alternative. A non-empty Label fails back to the nearest choice
// point created by an Or goal carrying the same label.
type Inconsistency struct {
	Label string
	Msg   string
}

// Error implements the error interface.
func (e *Inconsistency) Error() string {
	switch {
	case e.Label != "" && e.Msg != "":
		return fmt.Sprintf("inconsistent [%s]: %s", e.Label, e.Msg)
	case e.Label != "":
		return fmt.Sprintf("inconsistent [%s]", e.Label)
	case e.Msg != "":
		return "inconsistent: " + e.Msg
	}
	return "inconsistent"
}

// Inconsistent returns an inconsistency error with the given label and message.
func Inconsistent(label, msg string) error {
	return &Inconsistency{Label: label, Msg: msg}
}

// Failf returns a labeled inconsistency with a formatted message.
func Failf(label, format string, args ...any) error {
	return &Inconsistency{Label: label, Msg: fmt.Sprintf(format, args...)}
}

// Inconsistentf returns an unlabeled inconsistency with a formatted message.
func Inconsistentf(format string, args ...any) error {
	return &Inconsistency{Msg: fmt.Sprintf(format, args...)}
}

// AsInconsistency reports whether err (or anything it wraps) is an
// inconsistency, returning it if so.
func AsInconsistency(err error) (*Inconsistency, bool) {
	var inc *Inconsistency
	if errors.As(err, &inc) {
		return inc, true
	}
	return nil, false
}

// IsInconsistent reports whether err signals search failure.
func IsInconsistent(err error) bool {
	_, ok := AsInconsistency(err)
	return ok
}

// Engine errors
var (
	ErrClosed     = errors.New("manager is closed")
	ErrNoSolution = errors.New("no solution")
	ErrBadRange   = errors.New("invalid range")
)
