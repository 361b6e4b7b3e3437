package remotejob

import "errors"

// ErrTimeout indicates the local wait budget was exceeded before a terminal
// status was observed. The remote job may still be running.
var ErrTimeout = errors.New("remote job timed out")

// ErrMalformedResponse indicates a success status lacked the expected result.
var ErrMalformedResponse = errors.New("malformed provider response")

// FailureError carries the flattened message of an explicit provider failure.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	if e.Message == "" {
		return "remote job failed"
	}
	return "remote job failed: " + e.Message
}

// UnknownStatusError reports a status outside the provider's known vocabulary.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return "unknown job status: " + e.Status
}

// TransientError marks a status-check failure that should be retried in
// place after a short backoff, e.g. provider rate limiting.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable in place.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
