package remotejob

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastOptions() Options {
	return Options{
		MaxWait:          time.Second,
		PollInterval:     time.Millisecond,
		TransientBackoff: time.Millisecond,
	}
}

func submitOK(ctx context.Context) (string, error) { return "job-1", nil }

func classifyTest(status string) Outcome {
	switch status {
	case "in_progress":
		return OutcomeInProgress
	case "succeeded":
		return OutcomeSucceeded
	case "failed":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

func TestSubmitAndWaitPollsUntilSuccess(t *testing.T) {
	statuses := []string{"in_progress", "in_progress", "succeeded"}
	checks := 0
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		if jobID != "job-1" {
			t.Fatalf("checked wrong job ID: %s", jobID)
		}
		res := CheckResult{Status: statuses[checks]}
		if res.Status == "succeeded" {
			res.Output = json.RawMessage(`["https://cdn.example.com/out.jpg"]`)
		}
		checks++
		return res, nil
	}

	out, err := SubmitAndWait(context.Background(), submitOK, check, classifyTest, fastOptions())
	if err != nil {
		t.Fatalf("SubmitAndWait returned error: %v", err)
	}
	if out != "https://cdn.example.com/out.jpg" {
		t.Fatalf("unexpected output: %s", out)
	}
	if checks != 3 {
		t.Fatalf("expected 3 status checks, got %d", checks)
	}
}

func TestSubmitAndWaitTimeout(t *testing.T) {
	opts := fastOptions()
	opts.MaxWait = 5 * time.Millisecond

	checks := 0
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		checks++
		return CheckResult{Status: "in_progress"}, nil
	}

	_, err := SubmitAndWait(context.Background(), submitOK, check, classifyTest, opts)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if checks == 0 {
		t.Fatal("expected at least one status check before timing out")
	}
}

func TestSubmitAndWaitFailure(t *testing.T) {
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		return CheckResult{Status: "failed", ErrorMessage: "NSFW content detected"}, nil
	}

	_, err := SubmitAndWait(context.Background(), submitOK, check, classifyTest, fastOptions())
	var fe *FailureError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FailureError, got %v", err)
	}
	if fe.Message != "NSFW content detected" {
		t.Fatalf("unexpected failure message: %s", fe.Message)
	}
}

func TestSubmitAndWaitUnknownStatus(t *testing.T) {
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		return CheckResult{Status: "paused"}, nil
	}

	_, err := SubmitAndWait(context.Background(), submitOK, check, classifyTest, fastOptions())
	var ue *UnknownStatusError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownStatusError, got %v", err)
	}
	if ue.Status != "paused" {
		t.Fatalf("unexpected status in error: %s", ue.Status)
	}
}

func TestSubmitAndWaitRetriesTransientChecks(t *testing.T) {
	checks := 0
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		checks++
		if checks <= 2 {
			return CheckResult{}, &TransientError{Err: errors.New("rate limited")}
		}
		return CheckResult{Status: "succeeded", Output: json.RawMessage(`"done"`)}, nil
	}

	out, err := SubmitAndWait(context.Background(), submitOK, check, classifyTest, fastOptions())
	if err != nil {
		t.Fatalf("SubmitAndWait returned error: %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output: %s", out)
	}
	if checks != 3 {
		t.Fatalf("expected 3 checks, got %d", checks)
	}
}

func TestSubmitAndWaitAbortsOnCheckError(t *testing.T) {
	checkErr := errors.New("connection refused")
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		return CheckResult{}, checkErr
	}

	_, err := SubmitAndWait(context.Background(), submitOK, check, classifyTest, fastOptions())
	if !errors.Is(err, checkErr) {
		t.Fatalf("expected check error to propagate, got %v", err)
	}
}

func TestSubmitAndWaitSubmitError(t *testing.T) {
	submit := func(ctx context.Context) (string, error) {
		return "", errors.New("401 unauthorized")
	}
	check := func(ctx context.Context, jobID string) (CheckResult, error) {
		t.Fatal("check should not run when submission fails")
		return CheckResult{}, nil
	}

	_, err := SubmitAndWait(context.Background(), submit, check, classifyTest, fastOptions())
	if err == nil {
		t.Fatal("expected submission error")
	}
}

func TestFirstOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare string", raw: `"https://a/x.jpg"`, want: "https://a/x.jpg"},
		{name: "list", raw: `["https://a/1.jpg","https://a/2.jpg"]`, want: "https://a/1.jpg"},
		{name: "empty list", raw: `[]`, wantErr: true},
		{name: "empty string", raw: `""`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
		{name: "object", raw: `{"url":"https://a/x.jpg"}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FirstOutput(json.RawMessage(tc.raw))
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FirstOutput returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}
