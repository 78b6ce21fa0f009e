package client

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"digital.vasic.salamoonder/pkg/client/clienttest"
	"digital.vasic.salamoonder/pkg/httpclient"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/metrics"
	"digital.vasic.salamoonder/pkg/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

// countingWaiter records poll-interval waits without sleeping.
type countingWaiter struct {
	calls atomic.Int32
	last  atomic.Int64
}

func (w *countingWaiter) wait(_ context.Context, d time.Duration) error {
	w.calls.Add(1)
	w.last.Store(int64(d))
	return nil
}

func newTestClient(srv *clienttest.Server, opts ...Option) (*Client, *countingWaiter) {
	w := &countingWaiter{}
	base := []Option{WithBaseURL(srv.URL), WithWaiter(w.wait)}
	return New("test-key", append(base, opts...)...), w
}

func TestNew_Defaults(t *testing.T) {
	c := New("k")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries())
	assert.Equal(t, DefaultPollInterval, c.PollInterval())
	assert.IsType(t, &httpclient.Client{}, c.Transport())
	assert.Equal(t, logging.NullLogger{}, c.Logger())
	assert.Equal(t, metrics.NoopMetrics{}, c.Metrics())
}

func TestNew_Options(t *testing.T) {
	m := metrics.NewMemoryMetrics()
	tr := httpclient.NewClient()
	c := New("k",
		WithBaseURL("http://api.local/"),
		WithMaxRetries(3),
		WithPollInterval(50*time.Millisecond),
		WithMetrics(m),
		WithTransport(tr),
		WithLogger(nil),
		WithWaiter(nil),
	)
	assert.Equal(t, "http://api.local", c.BaseURL())
	assert.Equal(t, 3, c.MaxRetries())
	assert.Equal(t, 50*time.Millisecond, c.PollInterval())
	assert.Same(t, m, c.Metrics())
	assert.Same(t, tr, c.Transport())
	assert.NotNil(t, c.wait)
}

func TestSleepWaiter(t *testing.T) {
	require.NoError(t, SleepWaiter(context.Background(), time.Millisecond))
	require.NoError(t, SleepWaiter(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepWaiter(ctx, time.Hour), context.Canceled)
}

func TestSubmit(t *testing.T) {
	srv := clienttest.NewServer(func(body map[string]any) (int, any) {
		return http.StatusOK, clienttest.Accept("t1")
	}, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	h, err := c.Submit(context.Background(), task.Request{
		Kind:   task.KindKasadaCaptcha,
		Target: string(task.TargetTwitch),
		Email:  "ignored@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, Handle("t1"), h)

	calls := srv.CreateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "test-key", calls[0]["api_key"])
	assert.Equal(t, map[string]any{
		"type": "KasadaCaptchaSolver",
		"pjs":  string(task.TargetTwitch),
	}, calls[0]["task"])
}

func TestSubmit_Rejected(t *testing.T) {
	srv := clienttest.NewServer(func(map[string]any) (int, any) {
		return http.StatusOK, clienttest.Reject(1, "bad key")
	}, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchScraper})
	require.Error(t, err)
	assert.True(t, errors.Is(err, task.ErrSubmissionRejected))

	var te *task.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "bad key", te.Message)
}

func TestSubmit_RejectedWithErrorStatus(t *testing.T) {
	srv := clienttest.NewServer(func(map[string]any) (int, any) {
		return http.StatusUnauthorized, clienttest.Reject(3, "invalid api key")
	}, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchScraper})
	assert.True(t, errors.Is(err, task.ErrSubmissionRejected))
}

func TestSubmit_HTTPFailure(t *testing.T) {
	srv := clienttest.NewServer(func(map[string]any) (int, any) {
		return http.StatusInternalServerError, "oops"
	}, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchScraper})
	require.Error(t, err)
	assert.True(t, errors.Is(err, task.ErrTransportFailure))
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestSubmit_MalformedBody(t *testing.T) {
	srv := clienttest.NewServer(func(map[string]any) (int, any) {
		return http.StatusOK, "not json"
	}, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchScraper})
	assert.True(t, errors.Is(err, task.ErrTransportFailure))
}

func TestSubmit_NoTaskID(t *testing.T) {
	srv := clienttest.NewServer(func(map[string]any) (int, any) {
		return http.StatusOK, clienttest.Accept("")
	}, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchScraper})
	assert.True(t, errors.Is(err, task.ErrSubmissionRejected))
}

func TestSubmit_InvalidRequestMakesNoCall(t *testing.T) {
	srv := clienttest.NewServer(nil, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchRegisterAccount})
	assert.True(t, errors.Is(err, task.ErrInvalidRequest))
	assert.Empty(t, srv.CreateCalls())
}

func TestSubmit_ConnectionRefused(t *testing.T) {
	srv := clienttest.NewServer(nil, nil)
	srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.Submit(context.Background(), task.Request{Kind: task.KindTwitchScraper})
	assert.True(t, errors.Is(err, task.ErrTransportFailure))
}

func TestSubmit_CanceledContext(t *testing.T) {
	srv := clienttest.NewServer(nil, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newTestClient(srv)
	_, err := c.Submit(ctx, task.Request{Kind: task.KindTwitchScraper})
	assert.True(t, errors.Is(err, task.ErrCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
}
