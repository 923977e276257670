// Package apperrors defines the typed failures returned by the complaint engine.
//
// Every engine operation reports contract violations with one of these types so the
// caller can react to the specific kind of failure. None of them are swallowed or
// coerced into a different outcome.
package apperrors

import (
	"errors"
	"fmt"
)

// ScopeReason explains why a scope could not be computed for an actor.
type ScopeReason string

const (
	// CityNotAssigned is reported for admins whose profile carries no city.
	CityNotAssigned ScopeReason = "city_not_assigned"
	// UnknownActorType is reported for identities with an unrecognised role.
	UnknownActorType ScopeReason = "unknown_actor_type"
)

// ScopeError indicates that the actor lacks an attribute required to compute its
// visibility scope. It is never widened into an unfiltered result.
type ScopeError struct {
	Reason  ScopeReason
	ActorID string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope error: %s (actor %s)", e.Reason, e.ActorID)
}

// NewScopeError creates a scope error for the given actor.
func NewScopeError(reason ScopeReason, actorID string) *ScopeError {
	return &ScopeError{Reason: reason, ActorID: actorID}
}

// InvalidTransitionError indicates a target status outside the allowed set.
type InvalidTransitionError struct {
	From   string
	To     string
	Detail string
}

func (e *InvalidTransitionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid transition %q -> %q: %s", e.From, e.To, e.Detail)
	}
	return fmt.Sprintf("invalid transition %q -> %q", e.From, e.To)
}

// NewInvalidTransitionError creates an invalid transition error.
func NewInvalidTransitionError(from, to, detail string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to, Detail: detail}
}

// TerminalStateError indicates an attempt to change a Resolved or Rejected complaint.
type TerminalStateError struct {
	Status string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("terminal state violation: complaint is %s", e.Status)
}

// NewTerminalStateError creates a terminal state violation.
func NewTerminalStateError(status string) *TerminalStateError {
	return &TerminalStateError{Status: status}
}

// MissingNoteError indicates that a transition requiring a note was given none.
type MissingNoteError struct {
	To string
}

func (e *MissingNoteError) Error() string {
	return fmt.Sprintf("missing note: transition to %s requires a note", e.To)
}

// NewMissingNoteError creates a missing note error.
func NewMissingNoteError(to string) *MissingNoteError {
	return &MissingNoteError{To: to}
}

// NotFoundError indicates that the referenced record does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFoundError creates a not found error for a record kind and id.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// AuthorizationError indicates an actor acting outside the records it owns or is
// assigned to.
type AuthorizationError struct {
	ActorID string
	Message string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization mismatch for %s: %s", e.ActorID, e.Message)
}

// NewAuthorizationError creates an authorization mismatch.
func NewAuthorizationError(actorID, msg string) *AuthorizationError {
	return &AuthorizationError{ActorID: actorID, Message: msg}
}

// ValidationError indicates malformed input such as an unknown priority.
//
// Evidence ordering violations (an "after" image without any "before" image) are
// reported with this type as well, with Field set to "kind".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// StorageError wraps failures from the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the operation that failed.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsScope checks if the error is a scope error
func IsScope(err error) bool {
	var target *ScopeError
	return errors.As(err, &target)
}

// IsInvalidTransition checks if the error is an invalid transition
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsTerminalState checks if the error is a terminal state violation
func IsTerminalState(err error) bool {
	var target *TerminalStateError
	return errors.As(err, &target)
}

// IsMissingNote checks if the error is a missing note error
func IsMissingNote(err error) bool {
	var target *MissingNoteError
	return errors.As(err, &target)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAuthorization checks if the error is an authorization mismatch
func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
