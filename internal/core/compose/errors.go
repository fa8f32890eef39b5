// Package compose contains pure functions for validating Docker Compose
// files before they are handed to the docker compose CLI. All functions are
// pure with no I/O; the caller reads the file.
package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrEmptyInput     = errors.New("compose file is empty")
	ErrInvalidYAML    = errors.New("invalid YAML syntax")
	ErrNoServices     = errors.New("compose file must define at least one service")
	ErrServiceNoImage = errors.New("service must have image or build")
)

// ParseError wraps errors with context about where parsing failed.
type ParseError struct {
	Field   string // e.g. "services.web"
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
