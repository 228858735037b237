package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConfigurationError means the service was built without something it
// needs (catalog, repo, capability) and cannot start a session at all.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Detail)
}

// CapabilityError wraps a failure from an external capability (classifier,
// privacy screen, synthesizer). The session is left unchanged so the same
// message can be retried.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// InvalidInputError covers messages the machine refuses to process,
// such as empty or whitespace-only text.
type InvalidInputError struct {
	Detail string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Detail)
}

// IncompleteSessionError is returned when a report is requested for a
// session that has not confirmed every standard.
type IncompleteSessionError struct {
	SessionID          uuid.UUID
	StandardsConfirmed int
	StandardsTotal     int
}

func (e *IncompleteSessionError) Error() string {
	return fmt.Sprintf("session %s incomplete: %d of %d standards confirmed",
		e.SessionID, e.StandardsConfirmed, e.StandardsTotal)
}

// InvalidTransitionError is returned when a message arrives for a session
// in a state that cannot accept it.
type InvalidTransitionError struct {
	SessionID uuid.UUID
	State     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session %s cannot accept messages in state %q", e.SessionID, e.State)
}

var ErrSessionNotFound = errors.New("session not found")

var ErrNotSessionOwner = errors.New("session belongs to another preceptor")
