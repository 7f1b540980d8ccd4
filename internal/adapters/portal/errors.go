package portal

import "errors"

var (
	// ErrNoAPIKey indicates the client was constructed without an API key.
	ErrNoAPIKey = errors.New("portal: api key not configured")
	// ErrBudgetExhausted indicates the monthly call budget is spent.
	ErrBudgetExhausted = errors.New("portal: monthly call budget exhausted")
	// ErrRequest indicates the upstream request failed.
	ErrRequest = errors.New("portal: request failed")
)
