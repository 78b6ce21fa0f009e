package logging

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// secretSet is shared by a RedactingLogger and its children, so a
// token registered mid-workflow is masked everywhere.
type secretSet struct {
	mu       sync.RWMutex
	values   []string
	replacer *strings.Replacer
}

func (s *secretSet) add(values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		if len(v) > 4 && !slices.Contains(s.values, v) {
			s.values = append(s.values, v)
		}
	}
	// Longest first, so a secret that contains another is masked whole.
	sort.Slice(s.values, func(i, j int) bool { return len(s.values[i]) > len(s.values[j]) })
	pairs := make([]string, 0, 2*len(s.values))
	for _, v := range s.values {
		pairs = append(pairs, v, mask(v))
	}
	s.replacer = strings.NewReplacer(pairs...)
}

func (s *secretSet) apply(msg string) string {
	s.mu.RLock()
	r := s.replacer
	s.mu.RUnlock()
	if r == nil {
		return msg
	}
	return r.Replace(msg)
}

// mask keeps the first four characters.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

// RedactingLogger masks registered secrets (the API key, OAuth
// tokens) in messages, string fields, URLs and bodies, and hides
// credential headers, before handing entries to the inner logger.
// Secrets of four characters or fewer are not registered.
type RedactingLogger struct {
	inner   Logger
	secrets *secretSet
}

func NewRedactingLogger(inner Logger, secrets ...string) *RedactingLogger {
	r := &RedactingLogger{inner: inner, secrets: &secretSet{}}
	r.secrets.add(secrets...)
	return r
}

// AddSecrets registers more values to mask.
func (r *RedactingLogger) AddSecrets(secrets ...string) {
	r.secrets.add(secrets...)
}

func (r *RedactingLogger) fields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		if s, ok := f.Value.(string); ok {
			f.Value = r.secrets.apply(s)
		}
		out[i] = f
	}
	return out
}

func (r *RedactingLogger) Debug(msg string, fields ...Field) {
	r.inner.Debug(r.secrets.apply(msg), r.fields(fields)...)
}

func (r *RedactingLogger) Info(msg string, fields ...Field) {
	r.inner.Info(r.secrets.apply(msg), r.fields(fields)...)
}

func (r *RedactingLogger) Warn(msg string, fields ...Field) {
	r.inner.Warn(r.secrets.apply(msg), r.fields(fields)...)
}

func (r *RedactingLogger) Error(msg string, fields ...Field) {
	r.inner.Error(r.secrets.apply(msg), r.fields(fields)...)
}

func (r *RedactingLogger) WithFields(fields ...Field) Logger {
	return &RedactingLogger{inner: r.inner.WithFields(r.fields(fields)...), secrets: r.secrets}
}

func (r *RedactingLogger) LogAPIRequest(request APIRequestLog) {
	request.Headers = redactHeaders(request.Headers)
	request.URL = r.secrets.apply(request.URL)
	request.Body = r.secrets.apply(request.Body)
	r.inner.LogAPIRequest(request)
}

func (r *RedactingLogger) LogAPIResponse(response APIResponseLog) {
	response.Headers = redactHeaders(response.Headers)
	response.BodyPreview = r.secrets.apply(response.BodyPreview)
	r.inner.LogAPIResponse(response)
}

func (r *RedactingLogger) Close() error { return r.inner.Close() }

var credentialHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
}

// redactHeaders replaces non-empty credential headers with "****".
// An empty Authorization stays empty so its absence is visible.
func redactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if v != "" && credentialHeaders[strings.ToLower(k)] {
			v = "****"
		}
		out[k] = v
	}
	return out
}
