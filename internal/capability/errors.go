package capability

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when an action is called without a parameter
// it cannot run without.
var ErrInvalidParams = errors.New("invalid params")

// CapabilityError reports an action the caller is not permitted to perform.
type CapabilityError struct {
	Action  Action
	Missing string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: missing %s capability", e.Action, e.Missing)
}

// RangeError reports a numeric parameter outside its accepted bounds.
type RangeError struct {
	Param string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v out of range [%v, %v]", e.Param, e.Value, e.Min, e.Max)
}
