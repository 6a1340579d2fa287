package hub

import "errors"

// Hub-specific error types.
var (
	ErrHubAlreadyRunning = errors.New("hub is already running")
	ErrHubNotRunning     = errors.New("hub is not running")
	ErrPublishFull       = errors.New("publish channel is full")
)
