package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exposes Prometheus collectors that report task
// client activity.
type PrometheusMetrics struct {
	submissions      *prometheus.CounterVec
	polls            *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	workflowDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics constructs the collectors and registers them
// with reg (the default registerer when nil). Registration errors
// are returned so tests can use fresh registries.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "salamoonder",
				Subsystem: "task",
				Name:      "submissions_total",
				Help:      "createTask calls by kind and outcome.",
			},
			[]string{"kind", "status"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "salamoonder",
				Subsystem: "task",
				Name:      "polls_total",
				Help:      "getTaskResult calls by kind.",
			},
			[]string{"kind"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "salamoonder",
				Subsystem: "task",
				Name:      "duration_seconds",
				Help:      "Time from submission to decoded solution.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"kind", "status"},
		),
		workflowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "salamoonder",
				Subsystem: "workflow",
				Name:      "duration_seconds",
				Help:      "Workflow run time by workflow and outcome.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"workflow", "status"},
		),
	}
	for _, c := range []prometheus.Collector{m.submissions, m.polls, m.taskDuration, m.workflowDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordSubmission(kind, status string) {
	m.submissions.WithLabelValues(kind, status).Inc()
}

func (m *PrometheusMetrics) RecordPoll(kind string) {
	m.polls.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) RecordTask(kind, status string, duration time.Duration) {
	m.taskDuration.WithLabelValues(kind, status).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordWorkflow(workflow, status string, duration time.Duration) {
	m.workflowDuration.WithLabelValues(workflow, status).Observe(duration.Seconds())
}
