// Package client talks to the remote task API: it submits typed
// task requests, polls the returned job handle under a bounded
// retry budget and decodes the finished solution.
//
// A Client holds only read-only configuration, so one instance may
// serve any number of concurrent calls.
package client

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"digital.vasic.salamoonder/pkg/httpclient"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/metrics"
)

// Defaults for a new Client.
const (
	DefaultBaseURL      = "https://salamoonder.com/api"
	DefaultMaxRetries   = 120
	DefaultPollInterval = time.Second
)

// Transport performs a JSON POST. *httpclient.Client satisfies it.
type Transport interface {
	PostJSON(
		ctx context.Context, url string, body any, opts ...httpclient.RequestOption,
	) (*httpclient.Response, error)
}

// Waiter suspends the caller for d or until ctx is done.
type Waiter func(ctx context.Context, d time.Duration) error

// SleepWaiter is the default Waiter backed by a timer.
func SleepWaiter(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithWaiter replaces the poll-interval sleep, typically with a
// no-op in tests.
func WithWaiter(w Waiter) Option {
	return func(c *Client) {
		if w != nil {
			c.wait = w
		}
	}
}

// WithPollInterval sets the default interval between polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxRetries sets the default retry budget of GetSolution
// callers that do not pass their own.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.TaskMetrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracerProvider sets the OpenTelemetry provider spans are
// started from. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// Client is the task API client.
type Client struct {
	apiKey       string
	baseURL      string
	transport    Transport
	wait         Waiter
	pollInterval time.Duration
	maxRetries   int
	logger       logging.Logger
	metrics      metrics.TaskMetrics
	tracer       trace.Tracer
}

// New creates a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		wait:         SleepWaiter,
		pollInterval: DefaultPollInterval,
		maxRetries:   DefaultMaxRetries,
		logger:       logging.NullLogger{},
		metrics:      metrics.NoopMetrics{},
		tracer:       otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(c)
	}
	if c.transport == nil {
		c.transport = httpclient.NewClient(httpclient.WithLogger(c.logger))
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// MaxRetries returns the default retry budget.
func (c *Client) MaxRetries() int { return c.maxRetries }

// PollInterval returns the default poll interval.
func (c *Client) PollInterval() time.Duration { return c.pollInterval }

// Transport returns the transport, so workflows can issue their
// follow-up calls over the same connection pool.
func (c *Client) Transport() Transport { return c.transport }

// Logger returns the client logger.
func (c *Client) Logger() logging.Logger { return c.logger }

// Metrics returns the metrics sink.
func (c *Client) Metrics() metrics.TaskMetrics { return c.metrics }
