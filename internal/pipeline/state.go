package pipeline

import "fmt"

// State is a stage of the encode lifecycle
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateRendering
	StateFinalizing
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateInitializing:
		return "Initializing"
	case StateRendering:
		return "Rendering"
	case StateFinalizing:
		return "Finalizing"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow s in this run
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Status is a snapshot of a pipeline's progress through its lifecycle.
// Frame is the frame being rendered; Err is set once Failed.
type Status struct {
	State State
	Frame int
	Err   error
}
