package videogen

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyJobID       = errors.New("job id is required")
	ErrInvalidOptions   = errors.New("invalid polling options")
	ErrGenerationFailed = errors.New("video generation failed")
	ErrPollingTimeout   = errors.New("video generation status check timed out")
)

// GenerationFailedError is returned when the backend reports FAILED.
type GenerationFailedError struct {
	JobID   string
	Message string
	Status  *StatusResponse
}

func (e *GenerationFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("video generation failed: %s", msg)
}

func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// TransientFetchError wraps a failure of a single status fetch.
type TransientFetchError struct {
	JobID   string
	Attempt int
	Err     error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("failed to fetch status of job %s (attempt %d): %v", e.JobID, e.Attempt, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}
