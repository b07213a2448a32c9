package pipeline

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the encode context is cancelled. The
// returned error also wraps the context's own error.
var ErrCancelled = errors.New("encode cancelled")

// ErrBusy is returned by Encode while another Encode on the same pipeline runs
var ErrBusy = errors.New("pipeline is already encoding")

// EncoderError reports a sink failure. Frame is -1 for initialisation
// failures and the plan length for finalisation failures.
type EncoderError struct {
	Frame int
	Op    string
	Err   error
}

func (e *EncoderError) Error() string {
	switch {
	case e.Frame < 0:
		return fmt.Sprintf("encoder %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("encoder %s failed at frame %d: %v", e.Op, e.Frame, e.Err)
	}
}

func (e *EncoderError) Unwrap() error {
	return e.Err
}
