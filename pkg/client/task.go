package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"digital.vasic.salamoonder/pkg/httpclient"
	"digital.vasic.salamoonder/pkg/logging"
	"digital.vasic.salamoonder/pkg/metrics"
	"digital.vasic.salamoonder/pkg/task"
)

// Handle identifies a submitted job to poll.
type Handle string

// Poll statuses reported by getTaskResult. Matching ignores case;
// the service has sent both "PENDING" and "ready".
const (
	statusPending = "pending"
	statusReady   = "ready"
)

type createTaskRequest struct {
	APIKey string       `json:"api_key"`
	Task   task.Payload `json:"task"`
}

type createTaskResponse struct {
	ErrorCode        int             `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
	TaskID           string          `json:"taskId"`
	Wallet           json.RawMessage `json:"wallet"`
	Balance          json.RawMessage `json:"balance"`
}

type getTaskResultRequest struct {
	APIKey string `json:"api_key"`
	TaskID Handle `json:"taskId"`
}

type getTaskResultResponse struct {
	Status   string          `json:"status"`
	ErrorID  int             `json:"errorId"`
	Message  string          `json:"message"`
	Solution json.RawMessage `json:"solution"`
}

// Submit sends req to createTask and returns the job handle.
func (c *Client) Submit(ctx context.Context, req task.Request) (Handle, error) {
	ctx, span := c.startSpan(ctx, spanSubmit, attribute.String(attrKind, string(req.Kind)))
	h, err := c.submit(ctx, req)
	if err == nil {
		span.SetAttributes(attribute.String(attrTaskID, string(h)))
	}
	endSpan(span, err)
	return h, err
}

func (c *Client) submit(ctx context.Context, req task.Request) (Handle, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	resp, err := c.create(ctx, req)
	if err != nil {
		c.metrics.RecordSubmission(string(req.Kind), string(task.CodeOf(err)))
		return "", err
	}
	if resp.TaskID == "" {
		err := task.SubmissionRejected("server returned no task id")
		c.metrics.RecordSubmission(string(req.Kind), string(err.Code))
		return "", err
	}
	c.metrics.RecordSubmission(string(req.Kind), metrics.StatusSuccess)
	c.logger.Debug("task submitted",
		logging.KindField(string(req.Kind)),
		logging.TaskIDField(resp.TaskID),
	)
	return Handle(resp.TaskID), nil
}

// create performs the createTask call and classifies its outcome.
func (c *Client) create(ctx context.Context, req task.Request) (*createTaskResponse, error) {
	httpResp, err := c.transport.PostJSON(ctx, c.baseURL+"/createTask", createTaskRequest{
		APIKey: c.apiKey,
		Task:   req.Payload(),
	})
	if err != nil {
		return nil, transportErr(ctx, "createTask", err)
	}

	var out createTaskResponse
	decodeErr := httpResp.DecodeJSON(&out)
	if decodeErr == nil && out.ErrorCode != 0 {
		return nil, task.SubmissionRejected(out.ErrorDescription)
	}
	if !httpResp.OK() {
		return nil, task.TransportFailure("createTask",
			fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, preview(httpResp.Body)))
	}
	if decodeErr != nil {
		return nil, task.TransportFailure("createTask", decodeErr)
	}
	return &out, nil
}

// AwaitResult polls handle until it is ready and returns the raw
// solution payload. Pending polls beyond the first count against
// maxRetries, so at most maxRetries+1 polls are made. A non-zero
// error id fails immediately.
func (c *Client) AwaitResult(
	ctx context.Context, handle Handle, maxRetries int, pollInterval time.Duration,
) (json.RawMessage, error) {
	return c.awaitResult(ctx, "", handle, maxRetries, pollInterval)
}

func (c *Client) awaitResult(
	ctx context.Context, kind task.Kind, handle Handle, maxRetries int, pollInterval time.Duration,
) (json.RawMessage, error) {
	ctx, span := c.startSpan(ctx, spanAwait,
		attribute.String(attrKind, string(kind)),
		attribute.String(attrTaskID, string(handle)),
	)
	payload, attempts, err := c.pollLoop(ctx, kind, handle, maxRetries, pollInterval)
	span.SetAttributes(attribute.Int(attrAttempts, attempts))
	endSpan(span, err)
	return payload, err
}

func (c *Client) pollLoop(
	ctx context.Context, kind task.Kind, handle Handle, maxRetries int, pollInterval time.Duration,
) (json.RawMessage, int, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	log := c.logger.WithFields(
		logging.TaskIDField(string(handle)),
		logging.KindField(string(kind)),
	)
	metricKind := string(kind)
	if metricKind == "" {
		metricKind = "unknown"
	}

	attempts := 0
	for {
		res, err := c.poll(ctx, handle)
		attempts++
		c.metrics.RecordPoll(metricKind)
		if err != nil {
			return nil, attempts, err
		}
		if res.ErrorID != 0 {
			msg := res.Message
			if msg == "" {
				msg = "Unknown error"
			}
			return nil, attempts, task.PollError(msg)
		}

		switch strings.ToLower(res.Status) {
		case statusReady:
			log.Debug("task ready", logging.AttemptField(attempts))
			return res.Solution, attempts, nil
		case statusPending:
		default:
			return nil, attempts, task.PollError(fmt.Sprintf("unexpected task status %q", res.Status))
		}

		if attempts > maxRetries {
			log.Warn("task still pending, giving up", logging.AttemptField(attempts))
			return nil, attempts, task.RetriesExhausted(string(handle), attempts)
		}
		log.Debug("task pending", logging.AttemptField(attempts))
		if err := c.wait(ctx, pollInterval); err != nil {
			return nil, attempts, task.Canceled(err)
		}
	}
}

// poll performs one getTaskResult call.
func (c *Client) poll(ctx context.Context, handle Handle) (*getTaskResultResponse, error) {
	httpResp, err := c.transport.PostJSON(ctx, c.baseURL+"/getTaskResult", getTaskResultRequest{
		APIKey: c.apiKey,
		TaskID: handle,
	})
	if err != nil {
		return nil, transportErr(ctx, "getTaskResult", err)
	}

	var out getTaskResultResponse
	decodeErr := httpResp.DecodeJSON(&out)
	if decodeErr == nil && out.ErrorID != 0 {
		return &out, nil
	}
	if !httpResp.OK() {
		return nil, task.TransportFailure("getTaskResult",
			fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, preview(httpResp.Body)))
	}
	if decodeErr != nil {
		return nil, task.TransportFailure("getTaskResult", decodeErr)
	}
	return &out, nil
}

// GetSolution submits req, waits for it with the client's poll
// interval and decodes the result. The first failure of any stage
// is returned unchanged.
func (c *Client) GetSolution(ctx context.Context, req task.Request, maxRetries int) (task.Solution, error) {
	ctx, span := c.startSpan(ctx, spanGetSolution, attribute.String(attrKind, string(req.Kind)))
	start := time.Now()
	sol, err := c.getSolution(ctx, req, maxRetries)

	status := metrics.StatusSuccess
	if err != nil {
		status = string(task.CodeOf(err))
	}
	c.metrics.RecordTask(string(req.Kind), status, time.Since(start))
	endSpan(span, err)
	return sol, err
}

func (c *Client) getSolution(ctx context.Context, req task.Request, maxRetries int) (task.Solution, error) {
	if req.Kind == task.KindBalance {
		return nil, task.InvalidRequest("balance queries have no solution, use GetBalance")
	}
	handle, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	payload, err := c.awaitResult(ctx, req.Kind, handle, maxRetries, c.pollInterval)
	if err != nil {
		return nil, err
	}
	return task.Decode(payload, req.Kind)
}

// Solve is GetSolution narrowed to the concrete solution type S.
func Solve[S task.Solution](ctx context.Context, c *Client, req task.Request, maxRetries int) (S, error) {
	var zero S
	sol, err := c.GetSolution(ctx, req, maxRetries)
	if err != nil {
		return zero, err
	}
	s, ok := sol.(S)
	if !ok {
		return zero, task.KindMismatch(string(sol.Kind()), req.Kind)
	}
	return s, nil
}

// GetBalance queries the account credit. The createTask response
// already carries the wallet, so nothing is polled.
func (c *Client) GetBalance(ctx context.Context) (task.Balance, error) {
	ctx, span := c.startSpan(ctx, spanBalance)
	b, err := c.getBalance(ctx)
	endSpan(span, err)
	return b, err
}

func (c *Client) getBalance(ctx context.Context) (task.Balance, error) {
	resp, err := c.create(ctx, task.Request{Kind: task.KindBalance})
	if err != nil {
		c.metrics.RecordSubmission(string(task.KindBalance), string(task.CodeOf(err)))
		return task.Balance{}, err
	}
	c.metrics.RecordSubmission(string(task.KindBalance), metrics.StatusSuccess)

	raw := resp.Wallet
	if len(raw) == 0 || string(raw) == "null" {
		raw = resp.Balance
	}
	wallet, err := walletString(raw)
	if err != nil {
		return task.Balance{}, task.TransportFailure("getBalance", err)
	}
	b, err := task.ParseBalance(wallet)
	if err != nil {
		return task.Balance{}, task.TransportFailure("getBalance", err)
	}
	return b, nil
}

// walletString accepts the wallet as a JSON string or number.
func walletString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("response has no wallet")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("wallet is neither string nor number: %w", err)
	}
	return n.String(), nil
}

func transportErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return task.Canceled(err)
	}
	return task.TransportFailure(op, err)
}

func preview(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

var _ Transport = (*httpclient.Client)(nil)
