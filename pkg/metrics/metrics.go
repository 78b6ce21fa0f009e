// Package metrics records task and workflow activity. The client
// takes a TaskMetrics; NoopMetrics is the default.
package metrics

import "time"

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// TaskMetrics defines the interface for recording task metrics.
type TaskMetrics interface {
	// RecordSubmission records a createTask call and its outcome
	// code ("success" or a failure code).
	RecordSubmission(kind, status string)
	// RecordPoll records one getTaskResult call.
	RecordPoll(kind string)
	// RecordTask records a finished getSolution call.
	RecordTask(kind, status string, duration time.Duration)
	// RecordWorkflow records a finished workflow run.
	RecordWorkflow(workflow, status string, duration time.Duration)
}

// NoopMetrics is a no-op implementation of TaskMetrics
// useful for testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordSubmission(_, _ string)                {}
func (NoopMetrics) RecordPoll(_ string)                         {}
func (NoopMetrics) RecordTask(_, _ string, _ time.Duration)     {}
func (NoopMetrics) RecordWorkflow(_, _ string, _ time.Duration) {}
