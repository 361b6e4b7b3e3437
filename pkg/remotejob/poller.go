package remotejob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the local classification of a provider status string.
type Outcome int

const (
	// OutcomeInProgress means the job has not reached a terminal state.
	OutcomeInProgress Outcome = iota
	// OutcomeSucceeded means the provider reported terminal success.
	OutcomeSucceeded
	// OutcomeFailed means the provider reported terminal failure.
	OutcomeFailed
	// OutcomeUnknown means the status is not part of the provider contract.
	OutcomeUnknown
)

// Classifier maps a provider-specific status string to an Outcome. Each
// provider plugs its own vocabulary into the shared poll loop.
type Classifier func(status string) Outcome

// CheckResult is the observation produced by one status check.
type CheckResult struct {
	Status       string
	Output       json.RawMessage
	ErrorMessage string
}

// SubmitFunc performs the initial submission and returns the remote job ID.
type SubmitFunc func(ctx context.Context) (string, error)

// CheckFunc performs exactly one status check for the given job ID.
// A *TransientError return is retried in place; any other error aborts.
type CheckFunc func(ctx context.Context, jobID string) (CheckResult, error)

// Options bound the poll loop.
type Options struct {
	MaxWait          time.Duration
	PollInterval     time.Duration
	TransientBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxWait <= 0 {
		o.MaxWait = 90 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.TransientBackoff <= 0 {
		o.TransientBackoff = 10 * time.Second
	}
	return o
}

// SubmitAndWait submits a job and drives it to a terminal outcome or local
// timeout. Status checks are strictly sequential; exceeding MaxWait abandons
// the job locally without cancelling it remotely.
func SubmitAndWait(ctx context.Context, submit SubmitFunc, check CheckFunc, classify Classifier, opts Options) (string, error) {
	opts = opts.withDefaults()

	jobID, err := submit(ctx)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}

	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed > opts.MaxWait {
			return "", fmt.Errorf("%w after %ds", ErrTimeout, int(elapsed.Seconds()))
		}

		res, err := check(ctx, jobID)
		if err != nil {
			if IsTransient(err) {
				if err := sleep(ctx, opts.TransientBackoff); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("check job %s: %w", jobID, err)
		}

		switch classify(res.Status) {
		case OutcomeSucceeded:
			return FirstOutput(res.Output)
		case OutcomeFailed:
			return "", &FailureError{Message: res.ErrorMessage}
		case OutcomeInProgress:
			if err := sleep(ctx, opts.PollInterval); err != nil {
				return "", err
			}
		default:
			return "", &UnknownStatusError{Status: res.Status}
		}
	}
}

// FirstOutput extracts the canonical result from a terminal success payload.
// Providers return either a bare string or a list of outputs; the first list
// element is canonical and an empty payload is a malformed success.
func FirstOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: succeeded with no output", ErrMalformedResponse)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return "", fmt.Errorf("%w: succeeded with empty output", ErrMalformedResponse)
		}
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		if len(many) == 0 || many[0] == "" {
			return "", fmt.Errorf("%w: succeeded with empty output list", ErrMalformedResponse)
		}
		return many[0], nil
	}

	return "", fmt.Errorf("%w: unrecognized output payload", ErrMalformedResponse)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
