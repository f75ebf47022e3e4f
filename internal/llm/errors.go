package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no credentials are available for the configured provider.
var ErrNotConfigured = errors.New("llm: generation backend not configured")

// ErrGenerationUnavailable is returned once every attempt of a generation call failed.
var ErrGenerationUnavailable = errors.New("llm: generation unavailable")

// MalformedOutputError reports generation output that could not be turned into structured data.
type MalformedOutputError struct {
	Reason string
	Output string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm: malformed output: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("llm: malformed output: %s", e.Reason)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
