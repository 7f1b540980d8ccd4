package ai

import "errors"

var (
	// ErrNotConfigured indicates no API key is available.
	ErrNotConfigured = errors.New("ai: not configured")
	// ErrUnknownProvider indicates an unrecognized provider name.
	ErrUnknownProvider = errors.New("ai: unknown provider")
)
