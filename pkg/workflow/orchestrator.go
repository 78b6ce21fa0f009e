// Package workflow composes task API calls with direct requests to
// the integrity endpoint to produce integrity credentials.
//
// An Orchestrator keeps only read-only configuration. Every run
// generates its own identifiers, so concurrent runs may share one
// Orchestrator.
package workflow

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"digital.vasic.salamoonder/pkg/client"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/metrics"
	"digital.vasic.salamoonder/pkg/random"
	"digital.vasic.salamoonder/pkg/task"
)

// Defaults for the integrity endpoint.
const (
	DefaultIntegrityURL = "https://gql.twitch.tv"
	DefaultClientID     = "kimne78kx3ncx6brgo4mv6wki5h1ko"
)

// Identifier lengths.
const (
	DeviceIDLength  = 32
	SessionIDLength = 16
	RequestIDLength = 32
)

const tracerName = "digital.vasic.salamoonder/workflow"

// Solver runs a task to completion. *client.Client satisfies it.
type Solver interface {
	GetSolution(ctx context.Context, req task.Request, maxRetries int) (task.Solution, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithIntegrityURL overrides the integrity endpoint base URL.
func WithIntegrityURL(u string) Option {
	return func(o *Orchestrator) { o.integrityURL = strings.TrimRight(u, "/") }
}

// WithClientID overrides the default client id.
func WithClientID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.clientID = id
		}
	}
}

// WithMaxRetries sets the poll budget used when a run does not
// specify one.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) { o.maxRetries = n }
}

// WithGenerator replaces the identifier generator.
func WithGenerator(g random.Generator) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.random = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.TaskMetrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracerProvider sets the OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(o *Orchestrator) { o.onTransition = fn }
}

// Orchestrator runs integrity workflows.
type Orchestrator struct {
	solver       Solver
	transport    client.Transport
	random       random.Generator
	integrityURL string
	clientID     string
	maxRetries   int
	logger       logging.Logger
	metrics      metrics.TaskMetrics
	tracer       trace.Tracer
	onTransition TransitionFunc
}

// New creates an Orchestrator that solves tasks with solver and
// calls the integrity endpoint over transport.
func New(solver Solver, transport client.Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		solver:       solver,
		transport:    transport,
		random:       random.Alphanumeric,
		integrityURL: DefaultIntegrityURL,
		clientID:     DefaultClientID,
		maxRetries:   client.DefaultMaxRetries,
		logger:       logging.NullLogger{},
		metrics:      metrics.NoopMetrics{},
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FromClient creates an Orchestrator sharing c's transport,
// logger, metrics and retry budget. Later options win.
func FromClient(c *client.Client, opts ...Option) *Orchestrator {
	base := []Option{
		WithLogger(c.Logger()),
		WithMetrics(c.Metrics()),
		WithMaxRetries(c.MaxRetries()),
	}
	return New(c, c.Transport(), append(base, opts...)...)
}

// ClientID returns the default client id.
func (o *Orchestrator) ClientID() string { return o.clientID }

// IntegrityURL returns the integrity endpoint base URL.
func (o *Orchestrator) IntegrityURL() string { return o.integrityURL }

// Retries returns a per-run poll budget for IntegrityOptions and
// VariantOptions. Retries(0) allows a single poll.
func Retries(n int) *int { return &n }

// retries resolves a per-run budget; nil or negative means the
// orchestrator default.
func (o *Orchestrator) retries(n *int) int {
	if n != nil && *n >= 0 {
		return *n
	}
	return o.maxRetries
}

// solutionKind names the kind of sol for mismatch errors. A Solver
// may return a nil solution without an error.
func solutionKind(sol task.Solution) string {
	if sol == nil {
		return ""
	}
	return string(sol.Kind())
}

// protect registers secrets with a redacting logger, if one is
// installed.
func (o *Orchestrator) protect(secrets ...string) {
	if r, ok := o.logger.(interface{ AddSecrets(...string) }); ok {
		r.AddSecrets(secrets...)
	}
}

// observe wraps one workflow run in a span and a metric.
func (o *Orchestrator) observe(
	ctx context.Context, name string, run func(context.Context) (*IntegrityCredential, error),
) (*IntegrityCredential, error) {
	ctx, span := o.tracer.Start(ctx, "salamoonder.workflow."+name)
	start := time.Now()
	cred, err := run(ctx)

	status := metrics.StatusSuccess
	if err != nil {
		status = string(task.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("salamoonder.error.code", status))
		o.logger.Warn("workflow failed",
			logging.WorkflowField(name),
			logging.ErrorField(err),
		)
	} else {
		span.SetStatus(codes.Ok, "")
		o.logger.Info("workflow complete",
			logging.WorkflowField(name),
			logging.DurationField("duration", time.Since(start)),
		)
	}
	o.metrics.RecordWorkflow(name, status, time.Since(start))
	span.End()
	return cred, err
}
