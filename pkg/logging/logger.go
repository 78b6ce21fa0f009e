// Package logging provides structured logging for the task client
// and workflows, backed by zap, with null and redacting variants.
package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Logger is what the client, the transport and the workflows log
// through. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a child that adds fields to every entry.
	WithFields(fields ...Field) Logger

	// LogAPIRequest and LogAPIResponse record transport traffic.
	// Implementations may drop them unless API logging is enabled.
	LogAPIRequest(request APIRequestLog)
	LogAPIResponse(response APIResponseLog)

	// Close flushes buffered entries.
	Close() error
}

// APIRequestLog describes one outbound transport call. RequestID
// pairs it with its APIResponseLog.
type APIRequestLog struct {
	RequestID  string            `json:"request_id"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body,omitempty"`
	BodyLength int               `json:"body_length"`
	Proxied    bool              `json:"proxied"`
}

// APIResponseLog describes the answer to an APIRequestLog.
type APIResponseLog struct {
	RequestID   string            `json:"request_id"`
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers"`
	BodyPreview string            `json:"body_preview,omitempty"`
	BodyLength  int               `json:"body_length"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// ParseLevel maps a case-insensitive level name such as "debug" to
// a zap level. Unknown names give info.
func ParseLevel(name string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
