package models

import (
	"errors"
)

// Typed error kinds returned by the triage service. Handlers map these onto
// HTTP status codes instead of swallowing write failures.
var (
	// ErrAlertNotFound is returned when the alert id is not in the current set
	ErrAlertNotFound = errors.New("alert not found")

	// ErrUnknownResponder is returned when the responder id is not present in
	// the responder directory. The precondition fails closed: nothing is
	// written to the store.
	ErrUnknownResponder = errors.New("responder not found in directory")

	// ErrConflictingState is returned when the alert's current status does not
	// permit the requested transition, e.g. assigning an alert that another
	// operator already took.
	ErrConflictingState = errors.New("alert is not in a state that permits this transition")

	// ErrTransportFailure wraps store-level write failures
	ErrTransportFailure = errors.New("alert store write failed")
)
