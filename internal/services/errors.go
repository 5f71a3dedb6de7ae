// Package services defines the business logic for the chatbot: settings
// resolution, conversation turn processing, lead detection, and feedback.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrBusinessNotFound indicates that the referenced business does not
	// exist in the platform.
	ErrBusinessNotFound = errors.New("business not found")

	// ErrEmptyMessage is returned when a chat turn carries an empty or
	// whitespace-only message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a chat turn exceeds the maximum
	// configured message length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrLogNotFound indicates that the transcript entry referenced by a
	// feedback submission does not exist for the business.
	ErrLogNotFound = errors.New("chat log not found")
)

// ValidationError reports every field-level violation found while validating
// a settings update, so clients can fix all problems in one round trip.
type ValidationError struct {
	Fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
