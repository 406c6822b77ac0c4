package agent

import (
	"errors"
	"fmt"
)

// ErrAgentsExhausted is returned when an area has no further agents to offer.
// It is an expected terminal condition, not a failure.
var ErrAgentsExhausted = errors.New("no more agents for area")

// ExhaustedError reports the area whose agent directory is exhausted.
type ExhaustedError struct {
	Area string
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no more agents for area %s", e.Area)
}

// Is reports whether target is ErrAgentsExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAgentsExhausted
}
