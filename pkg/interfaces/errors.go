package interfaces

import "errors"

// Store errors shared across implementations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCodeTaken       = errors.New("session code already in use")
	ErrVersionConflict = errors.New("session version conflict")
)
