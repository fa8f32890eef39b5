package deploy

import (
	"fmt"
	"time"
)

// =============================================================================
// Outcome Types
// =============================================================================

// State is the terminal state of a deployment.
type State string

const (
	// StateRunning means the container was confirmed running (or health
	// confirmation was disabled and the container started).
	StateRunning State = "running"

	// StateFailed means the container could not be created or exited
	// before it was confirmed running.
	StateFailed State = "failed"

	// StateTimedOut means the poll budget was exhausted without the
	// container reaching a terminal status.
	StateTimedOut State = "timed_out"
)

// Reason explains a non-running final state.
type Reason string

const (
	ReasonCreationFailed      Reason = "creation_failed"
	ReasonContainerExited     Reason = "container_exited"
	ReasonHealthCheckTimedOut Reason = "health_check_timed_out"
)

// Outcome is the result of one deployment. It is always fully populated
// when the deploy ran; inspect FinalState rather than assuming success.
type Outcome struct {
	ContainerName string
	Image         string
	FinalState    State

	// Attempts is the number of status polls performed. Zero when health
	// confirmation was disabled or creation failed.
	Attempts int

	// Reason is set for non-running final states.
	Reason Reason

	// Diagnostic carries the engine error or a hint about where to look
	// (container logs) for non-running final states.
	Diagnostic string

	// Duration is the wall-clock time the deploy took.
	Duration time.Duration
}

// Success reports whether the deployment ended running.
func (o Outcome) Success() bool {
	return o.FinalState == StateRunning
}

// Err converts a non-running outcome into a *Error so callers that want to
// abort on failure can propagate it. It returns nil for a running outcome.
func (o Outcome) Err() error {
	if o.Success() {
		return nil
	}
	return &Error{
		ContainerName: o.ContainerName,
		Image:         o.Image,
		State:         o.FinalState,
		Reason:        o.Reason,
		Diagnostic:    o.Diagnostic,
		Attempts:      o.Attempts,
	}
}

// Error is the terminal failure of a deployment: the container never reached
// a confirmed running state. Validation problems are *ValidationError, not
// *Error; engine call problems surface in Diagnostic.
type Error struct {
	ContainerName string
	Image         string
	State         State
	Reason        Reason
	Diagnostic    string
	Attempts      int
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("deploy %s (%s): %s", e.ContainerName, e.Image, e.Reason)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}
