package candidate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

// Candidate is one (model, parameter-set) combination tried within a stage.
// Candidates are tried in the order given; earlier entries are preferred.
type Candidate struct {
	Model   string
	Version string
	Params  map[string]any
}

// InvokeFunc submits one candidate and blocks until its terminal outcome,
// returning the resulting artifact URL.
type InvokeFunc func(ctx context.Context, c Candidate) (string, error)

// ErrModelNotFound marks a target model the provider does not know. Every
// remaining candidate for that model is skipped, not just the failing one.
var ErrModelNotFound = errors.New("model not found")

// Class labels why a candidate failed.
type Class int

const (
	// ClassParameterMismatch means the provider rejected the parameter shape.
	ClassParameterMismatch Class = iota
	// ClassTimeout is ambiguous: wrong parameters or provider overload.
	ClassTimeout
	// ClassOther covers every remaining failure.
	ClassOther
)

// Classify buckets a candidate failure. All classes advance to the next
// candidate; only exhaustion of the whole list is fatal.
func Classify(err error) Class {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "unexpected"), strings.Contains(msg, "required"):
		return ClassParameterMismatch
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return ClassTimeout
	default:
		return ClassOther
	}
}

const maxErrorLen = 150

// ExhaustedError aggregates a fully failed candidate list.
type ExhaustedError struct {
	Attempts  int
	Models    []string
	LastError string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d candidate(s) failed for %s, last error: %s",
		e.Attempts, strings.Join(e.Models, ", "), e.LastError)
}

// Run tries each candidate in order until one yields a non-empty result.
// Failed candidates are never retried.
func Run(ctx context.Context, candidates []Candidate, invoke InvokeFunc) (string, error) {
	var (
		attempts  int
		lastError string
		skipped   = map[string]bool{}
		models    = map[string]bool{}
	)

	for i, c := range candidates {
		if skipped[c.Model] {
			continue
		}

		attempts++
		models[c.Model] = true

		result, err := invoke(ctx, c)
		if err == nil && result != "" {
			return result, nil
		}
		if err == nil {
			err = errors.New("empty result")
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastError = truncate(err.Error(), maxErrorLen)
		if errors.Is(err, ErrModelNotFound) {
			log.Printf("candidate %d/%d: model %s not found, skipping remaining candidates for it", i+1, len(candidates), c.Model)
			skipped[c.Model] = true
			continue
		}

		switch Classify(err) {
		case ClassParameterMismatch:
			log.Printf("candidate %d/%d: invalid parameters: %s", i+1, len(candidates), lastError)
		case ClassTimeout:
			log.Printf("candidate %d/%d: timed out: %s", i+1, len(candidates), lastError)
		default:
			log.Printf("candidate %d/%d: error: %s", i+1, len(candidates), lastError)
		}
	}

	tried := make([]string, 0, len(models))
	for m := range models {
		tried = append(tried, m)
	}
	sort.Strings(tried)

	return "", &ExhaustedError{Attempts: attempts, Models: tried, LastError: lastError}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
