package cplex

import (
	"errors"
	"fmt"
)

// ErrStatusNotWritten is matched by an *EnvError whose native call returned
// without storing a status code.
var ErrStatusNotWritten = errors.New("cplex: native call did not report a status")

// EnvError reports a non-zero status from the CPLEX environment routines.
type EnvError struct {
	Op   string // "open" or "close"
	Code int32  // status code reported by CPLEX
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("cplex: could not %s CPLEX - status %d", e.Op, e.Code)
}

// Unwrap returns ErrStatusNotWritten when the status was never set.
func (e *EnvError) Unwrap() error {
	if e.Code == statusNotWritten {
		return ErrStatusNotWritten
	}
	return nil
}
