package replicate

import "github.com/cyberbaby/generator/pkg/remotejob"

// Prediction statuses use a lowercase vocabulary.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// ClassifyStatus maps the prediction vocabulary onto the shared poll loop.
func ClassifyStatus(status string) remotejob.Outcome {
	switch status {
	case StatusStarting, StatusProcessing:
		return remotejob.OutcomeInProgress
	case StatusSucceeded:
		return remotejob.OutcomeSucceeded
	case StatusFailed:
		return remotejob.OutcomeFailed
	default:
		return remotejob.OutcomeUnknown
	}
}
