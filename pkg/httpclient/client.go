// Package httpclient is the JSON-over-HTTP transport used by the
// task client and the workflows: POST a JSON body with optional
// headers and an optional per-request proxy, and hand back the
// status code and raw body.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"digital.vasic.salamoonder/pkg/logging"
)

const bodyPreviewLimit = 512

// ClientOption configures a Client via functional options.
type ClientOption func(*Client)

// Client wraps net/http.Client with JSON encoding, per-request
// proxies and API request/response logging. Defaults match common
// conventions so callers can use NewClient() with zero options.
type Client struct {
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a transport client. Pass ClientOption values
// to override defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.NullLogger{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithTimeout overrides the default HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger receiving API request/response logs.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers map[string]string
	proxy   string
}

// WithHeaders adds headers to the request. Empty values are sent
// as empty headers, not omitted.
func WithHeaders(headers map[string]string) RequestOption {
	return func(rc *requestConfig) {
		for k, v := range headers {
			rc.headers[k] = v
		}
	}
}

// WithProxy routes the request through an HTTP proxy given either
// as a URL or as bare "user:pass@host:port".
func WithProxy(proxy string) RequestOption {
	return func(rc *requestConfig) { rc.proxy = proxy }
}

// ProxyURL parses a proxy string, defaulting the scheme to http.
func ProxyURL(proxy string) (*url.URL, error) {
	raw := proxy
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse proxy: missing host")
	}
	return u, nil
}

// PostJSON marshals body (nil sends "{}") and POSTs it to
// rawURL. A non-2xx status is not an error; callers inspect
// Response.StatusCode.
func (c *Client) PostJSON(
	ctx context.Context, rawURL string, body any, opts ...RequestOption,
) (*Response, error) {
	rc := requestConfig{headers: make(map[string]string)}
	for _, o := range opts {
		o(&rc)
	}

	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, rawURL, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range rc.headers {
		req.Header.Set(k, v)
	}

	hc := c.httpClient
	if rc.proxy != "" {
		proxied, cleanup, err := c.proxiedClient(rc.proxy)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		hc = proxied
	}

	requestID := uuid.NewString()
	c.logger.LogAPIRequest(logging.APIRequestLog{
		RequestID:  requestID,
		Method:     req.Method,
		URL:        rawURL,
		Headers:    flatten(req.Header),
		Body:       string(payload),
		BodyLength: len(payload),
		Proxied:    rc.proxy != "",
	})

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	preview := data
	if len(preview) > bodyPreviewLimit {
		preview = preview[:bodyPreviewLimit]
	}
	c.logger.LogAPIResponse(logging.APIResponseLog{
		RequestID:   requestID,
		StatusCode:  resp.StatusCode,
		Headers:     flatten(resp.Header),
		BodyPreview: string(preview),
		BodyLength:  len(data),
		Elapsed:     time.Since(start),
	})

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// proxiedClient clones the base transport with a fixed proxy. The
// returned cleanup drops the clone's idle connections.
func (c *Client) proxiedClient(proxy string) (*http.Client, func(), error) {
	u, err := ProxyURL(proxy)
	if err != nil {
		return nil, nil, err
	}
	base, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	tr := base.Clone()
	tr.Proxy = http.ProxyURL(u)

	hc := *c.httpClient
	hc.Transport = tr
	return &hc, tr.CloseIdleConnections, nil
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
