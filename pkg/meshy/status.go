package meshy

import "github.com/cyberbaby/generator/pkg/remotejob"

// Task statuses use an uppercase vocabulary with an extra in-progress alias.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusInProgress = "IN_PROGRESS"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
)

// ClassifyStatus maps the task vocabulary onto the shared poll loop.
func ClassifyStatus(status string) remotejob.Outcome {
	switch status {
	case StatusPending, StatusProcessing, StatusInProgress:
		return remotejob.OutcomeInProgress
	case StatusSucceeded:
		return remotejob.OutcomeSucceeded
	case StatusFailed:
		return remotejob.OutcomeFailed
	default:
		return remotejob.OutcomeUnknown
	}
}
