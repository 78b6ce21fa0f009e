package metrics

import (
	"sync"
	"time"
)

// MemoryMetrics implements TaskMetrics with in-memory counters.
// It is safe for concurrent use.
type MemoryMetrics struct {
	mu          sync.Mutex
	submissions map[string]int
	polls       map[string]int
	tasks       map[string]int
	workflows   map[string]int
	durations   map[string][]time.Duration
}

// NewMemoryMetrics creates an empty MemoryMetrics.
func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{
		submissions: make(map[string]int),
		polls:       make(map[string]int),
		tasks:       make(map[string]int),
		workflows:   make(map[string]int),
		durations:   make(map[string][]time.Duration),
	}
}

func (m *MemoryMetrics) RecordSubmission(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[kind+":"+status]++
}

func (m *MemoryMetrics) RecordPoll(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[kind]++
}

func (m *MemoryMetrics) RecordTask(kind, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[kind+":"+status]++
	m.durations[kind] = append(m.durations[kind], duration)
}

func (m *MemoryMetrics) RecordWorkflow(workflow, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[workflow+":"+status]++
}

// SubmissionCount returns the count for a kind+status pair.
func (m *MemoryMetrics) SubmissionCount(kind, status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submissions[kind+":"+status]
}

// PollCount returns the number of polls issued for a kind.
func (m *MemoryMetrics) PollCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls[kind]
}

// TaskCount returns the count for a kind+status pair.
func (m *MemoryMetrics) TaskCount(kind, status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[kind+":"+status]
}

// WorkflowCount returns the count for a workflow+status pair.
func (m *MemoryMetrics) WorkflowCount(workflow, status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workflows[workflow+":"+status]
}
