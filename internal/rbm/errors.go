package rbm

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrNonFinite     = errors.New("non-finite parameter")
	ErrInvalidConfig = errors.New("invalid model config")
	ErrInvalidSteps  = errors.New("steps must be >= 0")
	ErrNilRand       = errors.New("nil random source")
)

// ShapeError reports a batch or parameter whose dimensions do not match the model.
type ShapeError struct {
	Op   string // Operation that rejected the input
	Want [2]int // Expected rows, cols (rows < 0 means any)
	Got  [2]int // Actual rows, cols
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	want := fmt.Sprintf("%dx%d", e.Want[0], e.Want[1])
	if e.Want[0] < 0 {
		want = fmt.Sprintf("Px%d", e.Want[1])
	}
	return fmt.Sprintf("%s: %v: want %s, got %dx%d", e.Op, ErrShapeMismatch, want, e.Got[0], e.Got[1])
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// NonFiniteError reports the first NaN or Inf found in an updated parameter.
type NonFiniteError struct {
	Param string // "weights", "visible_bias" or "hidden_bias"
	Index int    // Flat index of the first offending entry
	Value float64
}

// Error implements the error interface.
func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%v: %s[%d] = %v", ErrNonFinite, e.Param, e.Index, e.Value)
}

// Is reports whether target is ErrNonFinite.
func (e *NonFiniteError) Is(target error) bool {
	return target == ErrNonFinite
}
