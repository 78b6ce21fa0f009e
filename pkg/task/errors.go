package task

import (
	"errors"
	"fmt"
)

// Code classifies a failure of any public operation.
type Code string

// Failure codes.
const (
	CodeTransportFailure     Code = "transport_failure"
	CodeSubmissionRejected   Code = "submission_rejected"
	CodePollError            Code = "poll_error"
	CodeRetriesExhausted     Code = "retries_exhausted"
	CodeRemoteTaskFailed     Code = "remote_task_failed"
	CodeSolutionKindMismatch Code = "solution_kind_mismatch"
	CodeInvalidProxy         Code = "invalid_proxy"
	CodeInvalidRequest       Code = "invalid_request"
	CodeCanceled             Code = "canceled"
)

var codeText = map[Code]string{
	CodeTransportFailure:     "transport failure",
	CodeSubmissionRejected:   "submission rejected",
	CodePollError:            "poll error",
	CodeRetriesExhausted:     "retries exhausted",
	CodeRemoteTaskFailed:     "remote task failed",
	CodeSolutionKindMismatch: "solution kind mismatch",
	CodeInvalidProxy:         "invalid proxy",
	CodeInvalidRequest:       "invalid request",
	CodeCanceled:             "canceled",
}

// Error is the typed failure returned by every operation of the
// client and the workflows. Match it with errors.Is against the
// Err* sentinels or errors.As for the details.
type Error struct {
	Code Code

	// Message is the server- or validation-supplied description.
	Message string

	// Expected and Actual are set for kind mismatches.
	Expected Kind
	Actual   string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is.
var (
	ErrTransportFailure     = &Error{Code: CodeTransportFailure}
	ErrSubmissionRejected   = &Error{Code: CodeSubmissionRejected}
	ErrPollError            = &Error{Code: CodePollError}
	ErrRetriesExhausted     = &Error{Code: CodeRetriesExhausted}
	ErrRemoteTaskFailed     = &Error{Code: CodeRemoteTaskFailed}
	ErrSolutionKindMismatch = &Error{Code: CodeSolutionKindMismatch}
	ErrInvalidProxy         = &Error{Code: CodeInvalidProxy}
	ErrInvalidRequest       = &Error{Code: CodeInvalidRequest}
	ErrCanceled             = &Error{Code: CodeCanceled}
)

func (e *Error) Error() string {
	text, ok := codeText[e.Code]
	if !ok {
		text = string(e.Code)
	}
	if e.Code == CodeSolutionKindMismatch {
		text = fmt.Sprintf("%s: got %q, want %q", text, e.Actual, e.Expected)
	}
	if e.Message != "" {
		text += ": " + e.Message
	}
	if e.Err != nil {
		text += ": " + e.Err.Error()
	}
	return text
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the failure code carried by err, or "" when err
// is nil or not a task error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// TransportFailure wraps a network, HTTP or response-parsing
// failure of operation op.
func TransportFailure(op string, err error) *Error {
	return &Error{Code: CodeTransportFailure, Message: op, Err: err}
}

// SubmissionRejected reports a non-zero error code at submit time.
func SubmissionRejected(description string) *Error {
	return &Error{Code: CodeSubmissionRejected, Message: description}
}

// PollError reports a non-zero error id returned while polling.
func PollError(message string) *Error {
	return &Error{Code: CodePollError, Message: message}
}

// RetriesExhausted reports a job still pending after the budget.
func RetriesExhausted(handle string, attempts int) *Error {
	return &Error{
		Code:    CodeRetriesExhausted,
		Message: fmt.Sprintf("task %s still pending after %d polls", handle, attempts),
	}
}

// RemoteTaskFailed reports the Error solution variant.
func RemoteTaskFailed(failed string) *Error {
	return &Error{Code: CodeRemoteTaskFailed, Message: failed}
}

// KindMismatch reports a solution whose type differs from the
// requested kind.
func KindMismatch(actual string, expected Kind) *Error {
	return &Error{Code: CodeSolutionKindMismatch, Actual: actual, Expected: expected}
}

// InvalidProxy reports a malformed proxy string. The proxy itself
// is not echoed since it carries credentials.
func InvalidProxy() *Error {
	return &Error{Code: CodeInvalidProxy, Message: "proxy must match user:pass@host:port"}
}

// InvalidRequest reports a request rejected before any network call.
func InvalidRequest(message string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: message}
}

// Canceled wraps a context error observed while waiting.
func Canceled(err error) *Error {
	return &Error{Code: CodeCanceled, Err: err}
}
