// Package core defines the fundamental types and errors for Life OS.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Journal errors
	ErrIOFailure    = errors.New("journal file unreadable or unwritable")
	ErrInvalidScore = errors.New("score must be between 1 and 10")
	ErrTaskNotFound = errors.New("open task not found")

	// Collaborator errors
	ErrUpstreamFailure = errors.New("upstream service unavailable")
	ErrNoSpeech        = errors.New("no recognizable speech")
	ErrNotConfigured   = errors.New("integration not configured")

	// Session errors
	ErrSessionNotFound = errors.New("no pending transcription")
	ErrAwaitingEdit    = errors.New("transcription is waiting for edited text")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
