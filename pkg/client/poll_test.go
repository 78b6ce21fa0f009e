package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.salamoonder/pkg/client/clienttest"
	"digital.vasic.salamoonder/pkg/task"
)

func TestAwaitResult_RetriesExhausted(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3, 7} {
		srv := clienttest.NewServer(nil, func(string, int) (int, any) {
			return http.StatusOK, clienttest.Pending()
		})

		c, w := newTestClient(srv)
		_, err := c.AwaitResult(context.Background(), "t1", maxRetries, 10*time.Millisecond)
		require.Error(t, err)
		assert.True(t, errors.Is(err, task.ErrRetriesExhausted))
		assert.Equal(t, maxRetries+1, srv.PollsFor("t1"), "maxRetries=%d", maxRetries)
		assert.EqualValues(t, maxRetries, w.calls.Load())
		srv.Close()
	}
}

func TestAwaitResult_NegativeBudgetPollsOnce(t *testing.T) {
	srv := clienttest.NewServer(nil, nil)
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", -5, time.Second)
	assert.True(t, errors.Is(err, task.ErrRetriesExhausted))
	assert.Equal(t, 1, srv.PollsFor("t1"))
}

func TestAwaitResult_ReadyOnFirstPoll(t *testing.T) {
	srv := clienttest.NewServer(nil, clienttest.ReadyAfter(0, map[string]any{"type": "Twitch_Scraper", "username": "u"}))
	defer srv.Close()

	c, w := newTestClient(srv)
	payload, err := c.AwaitResult(context.Background(), "t1", 0, time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Twitch_Scraper","username":"u"}`, string(payload))
	assert.Equal(t, 1, srv.PollsFor("t1"))
	assert.EqualValues(t, 0, w.calls.Load())
}

func TestAwaitResult_ReadyAfterPending(t *testing.T) {
	srv := clienttest.NewServer(nil, clienttest.ReadyAfter(2, map[string]any{"type": "Twitch_Scraper"}))
	defer srv.Close()

	c, w := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 10, 250*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, srv.PollsFor("t1"))
	assert.EqualValues(t, 2, w.calls.Load())
	assert.Equal(t, int64(250*time.Millisecond), w.last.Load())
}

func TestAwaitResult_ReadyOnLastAllowedPoll(t *testing.T) {
	srv := clienttest.NewServer(nil, clienttest.ReadyAfter(3, map[string]any{"type": "Twitch_Scraper"}))
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4, srv.PollsFor("t1"))
}

func TestAwaitResult_SendsHandleAndKey(t *testing.T) {
	srv := clienttest.NewServer(nil, clienttest.ReadyAfter(0, map[string]any{}))
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "job-42", 0, time.Second)
	require.NoError(t, err)

	polls := srv.PollCalls()
	require.Len(t, polls, 1)
	assert.Equal(t, "job-42", polls[0]["taskId"])
	assert.Equal(t, "test-key", polls[0]["api_key"])
}

func TestAwaitResult_ErrorIDShortCircuits(t *testing.T) {
	srv := clienttest.NewServer(nil, func(_ string, attempt int) (int, any) {
		if attempt == 1 {
			return http.StatusOK, clienttest.Pending()
		}
		return http.StatusOK, clienttest.Failed(2, "task not found")
	})
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 50, time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, task.ErrPollError))
	assert.Contains(t, err.Error(), "task not found")
	assert.Equal(t, 2, srv.PollsFor("t1"))
}

func TestAwaitResult_ErrorIDWithoutMessage(t *testing.T) {
	srv := clienttest.NewServer(nil, func(string, int) (int, any) {
		return http.StatusOK, clienttest.Failed(1, "")
	})
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 5, time.Second)
	assert.True(t, errors.Is(err, task.ErrPollError))
	assert.Contains(t, err.Error(), "Unknown error")
}

func TestAwaitResult_ErrorIDOnHTTPError(t *testing.T) {
	srv := clienttest.NewServer(nil, func(string, int) (int, any) {
		return http.StatusNotFound, clienttest.Failed(4, "expired")
	})
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 5, time.Second)
	assert.True(t, errors.Is(err, task.ErrPollError))
}

func TestAwaitResult_UnexpectedStatus(t *testing.T) {
	srv := clienttest.NewServer(nil, func(string, int) (int, any) {
		return http.StatusOK, map[string]any{"status": "exploded", "errorId": 0}
	})
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 5, time.Second)
	assert.True(t, errors.Is(err, task.ErrPollError))
	assert.Contains(t, err.Error(), "exploded")
}

func TestAwaitResult_StatusCaseInsensitive(t *testing.T) {
	srv := clienttest.NewServer(nil, func(_ string, attempt int) (int, any) {
		if attempt == 1 {
			return http.StatusOK, map[string]any{"status": "pending", "errorId": 0}
		}
		return http.StatusOK, map[string]any{"status": "READY", "errorId": 0, "solution": map[string]any{}}
	})
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 5, time.Second)
	require.NoError(t, err)
}

func TestAwaitResult_TransportFailure(t *testing.T) {
	srv := clienttest.NewServer(nil, func(string, int) (int, any) {
		return http.StatusBadGateway, "bad gateway"
	})
	defer srv.Close()

	c, _ := newTestClient(srv)
	_, err := c.AwaitResult(context.Background(), "t1", 5, time.Second)
	assert.True(t, errors.Is(err, task.ErrTransportFailure))
	assert.Equal(t, 1, srv.PollsFor("t1"))
}

func TestAwaitResult_WaiterCanceled(t *testing.T) {
	srv := clienttest.NewServer(nil, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New("k", WithBaseURL(srv.URL), WithWaiter(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))
	_, err := c.AwaitResult(ctx, "t1", 10, time.Second)
	assert.True(t, errors.Is(err, task.ErrCanceled))
	assert.Equal(t, 1, srv.PollsFor("t1"))
}

func TestAwaitResult_RealSleep(t *testing.T) {
	srv := clienttest.NewServer(nil, clienttest.ReadyAfter(1, map[string]any{}))
	defer srv.Close()

	c := New("k", WithBaseURL(srv.URL))
	start := time.Now()
	_, err := c.AwaitResult(context.Background(), "t1", 2, 20*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
