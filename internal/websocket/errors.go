package websocket

import "errors"

// Connection-related errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write timeout")
)

// Handler-related errors
var (
	ErrInvalidParameters = errors.New("code and user query parameters are required")
)
