package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures a ZapLogger.
type LoggerConfig struct {
	// OutputPath is a file path or "stdout"/"stderr". Empty means
	// stderr.
	OutputPath string
	Level      zapcore.Level
	// LogAPI emits LogAPIRequest/LogAPIResponse entries at debug
	// level.
	LogAPI bool
	Fields map[string]any
}

// ZapLogger implements Logger on top of a zap.Logger.
type ZapLogger struct {
	base   *zap.Logger
	logAPI bool
}

// NewZapLogger builds a JSON zap logger from the production
// preset.
func NewZapLogger(config LoggerConfig) (*ZapLogger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(config.Level)
	if config.OutputPath != "" {
		zc.OutputPaths = []string{config.OutputPath}
	}
	if len(config.Fields) > 0 {
		zc.InitialFields = config.Fields
	}
	base, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &ZapLogger{base: base, logAPI: config.LogAPI}, nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(base *zap.Logger, logAPI bool) *ZapLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{base: base, logAPI: logAPI}
}

// SetupLogging returns the CLI logger: info level, or debug with
// API traffic when verbose.
func SetupLogging(verbose bool) (*ZapLogger, error) {
	config := LoggerConfig{Level: zapcore.InfoLevel}
	if verbose {
		config.Level = zapcore.DebugLevel
		config.LogAPI = true
	}
	return NewZapLogger(config)
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.base.Info(msg, toZap(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.base.Warn(msg, toZap(fields)...)
}

func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.base.Error(msg, toZap(fields)...)
}

func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.base.Debug(msg, toZap(fields)...)
}

// WithFields returns a child logger carrying fields.
func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{base: l.base.With(toZap(fields)...), logAPI: l.logAPI}
}

// LogAPIRequest logs an outbound request when API logging is on.
func (l *ZapLogger) LogAPIRequest(request APIRequestLog) {
	if !l.logAPI {
		return
	}
	l.base.Debug("api request",
		zap.String("request_id", request.RequestID),
		zap.String("method", request.Method),
		zap.String("url", request.URL),
		zap.Any("headers", request.Headers),
		zap.Int("body_length", request.BodyLength),
		zap.Bool("proxied", request.Proxied),
	)
}

// LogAPIResponse logs an inbound response when API logging is on.
func (l *ZapLogger) LogAPIResponse(response APIResponseLog) {
	if !l.logAPI {
		return
	}
	l.base.Debug("api response",
		zap.String("request_id", response.RequestID),
		zap.Int("status_code", response.StatusCode),
		zap.String("body_preview", response.BodyPreview),
		zap.Int("body_length", response.BodyLength),
		zap.Duration("elapsed", response.Elapsed),
	)
}

// Close flushes buffered entries. Sync errors from terminals are
// not actionable and are dropped.
func (l *ZapLogger) Close() error {
	_ = l.base.Sync()
	return nil
}
