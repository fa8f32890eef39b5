package docker

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Container errors
	ErrContainerNotFound   = errors.New("container not found")
	ErrContainerConflict   = errors.New("container name already in use")
	ErrContainerNotRunning = errors.New("container is not running")

	// Network errors
	ErrNetworkNotFound      = errors.New("network not found")
	ErrNetworkAlreadyExists = errors.New("network already exists")

	// Image errors
	ErrImageNotFound  = errors.New("image not found")
	ErrImagePull      = errors.New("image pull failed")
	ErrImageBuild     = errors.New("image build failed")
	ErrImagePush      = errors.New("image push failed")
	ErrPortAllocated  = errors.New("port is already allocated")
	ErrEngineUnusable = errors.New("container engine connection failed")
)

// EngineError wraps engine failures with the operation and entity involved.
type EngineError struct {
	Op      string // operation that failed
	Entity  string // container, network, image
	ID      string // entity name or ID if applicable
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func newEngineError(op, entity, id, message string, err error) *EngineError {
	return &EngineError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
