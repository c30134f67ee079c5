package geometry

import (
	"errors"
	"fmt"
)

// ErrSingularMatrix is returned by Matrix.Invert when the determinant is
// numerically zero and no inverse exists.
var ErrSingularMatrix = errors.New("matrix is singular and cannot be inverted")

// UnsupportedConversionError reports a space pair with no registered
// conversion plan. The engine fails loudly rather than passing coordinates
// through unchanged, because a silently wrong space tag corrupts every
// downstream position.
type UnsupportedConversionError struct {
	From Space
	To   Space
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("no conversion plan from %q space to %q space", e.From, e.To)
}

// NumericalError reports a conversion step that produced a non-finite
// coordinate. LastX and LastY hold the last finite intermediate value so
// callers can log where the chain went bad before dropping the element.
type NumericalError struct {
	Step  string
	LastX float64
	LastY float64
	Err   error
}

func (e *NumericalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion step %q failed at (%.3f, %.3f): %v", e.Step, e.LastX, e.LastY, e.Err)
	}
	return fmt.Sprintf("conversion step %q produced a non-finite coordinate, last valid value (%.3f, %.3f)", e.Step, e.LastX, e.LastY)
}

func (e *NumericalError) Unwrap() error {
	return e.Err
}
