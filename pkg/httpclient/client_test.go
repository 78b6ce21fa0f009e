package httpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"digital.vasic.salamoonder/pkg/logging"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
	assert.Equal(t, logging.NullLogger{}, c.logger)
}

func TestNewClient_Options(t *testing.T) {
	hc := &http.Client{}
	c := NewClient(WithHTTPClient(hc), WithTimeout(5*time.Second), WithLogger(nil))
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 5*time.Second, hc.Timeout)
	assert.Equal(t, logging.NullLogger{}, c.logger)
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createTask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key", body["api_key"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"taskId":"t1"}`))
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.PostJSON(context.Background(), srv.URL+"/createTask", map[string]string{"api_key": "key"})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	var out struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, resp.DecodeJSON(&out))
	assert.Equal(t, "t1", out.TaskID)
}

func TestClient_PostJSON_NilBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "{}", string(data))

		assert.Equal(t, "UA", r.Header.Get("User-Agent"))
		assert.Equal(t, "CD", r.Header.Get("x-kpsdk-cd"))
		values, present := r.Header["Authorization"]
		assert.True(t, present, "empty Authorization header must be sent")
		assert.Equal(t, []string{""}, values)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.PostJSON(context.Background(), srv.URL, nil, WithHeaders(map[string]string{
		"User-Agent":    "UA",
		"x-kpsdk-cd":    "CD",
		"Authorization": "",
	}))
	require.NoError(t, err)
}

func TestClient_PostJSON_Non2xxIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	resp, err := NewClient().PostJSON(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	err = resp.DecodeJSON(&map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestClient_PostJSON_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient().PostJSON(context.Background(), url, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_PostJSON_EncodeError(t *testing.T) {
	_, err := NewClient().PostJSON(context.Background(), "http://localhost", map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode request")
}

func TestClient_PostJSON_ThroughProxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream.invalid", r.URL.Host)
		assert.Equal(t, "/integrity", r.URL.Path)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user1:pass1"))
		assert.Equal(t, want, r.Header.Get("Proxy-Authorization"))
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer proxy.Close()

	hostPort := strings.TrimPrefix(proxy.URL, "http://")
	resp, err := NewClient().PostJSON(
		context.Background(), "http://upstream.invalid/integrity", nil,
		WithProxy("user1:pass1@"+hostPort),
	)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"abc"}`, string(resp.Body))
}

func TestClient_PostJSON_BadProxy(t *testing.T) {
	_, err := NewClient().PostJSON(context.Background(), "http://localhost", nil, WithProxy("http://"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse proxy")
}

func TestClient_PostJSON_LogsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := NewClient(WithLogger(logging.NewZapLoggerFrom(zap.New(core), true)))
	_, err := c.PostJSON(context.Background(), srv.URL+"/getTaskResult", map[string]string{"taskId": "t1"})
	require.NoError(t, err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	reqID := entries[0].ContextMap()["request_id"]
	assert.NotEmpty(t, reqID)
	assert.Equal(t, reqID, entries[1].ContextMap()["request_id"])
	assert.Equal(t, `{"ok":true}`, entries[1].ContextMap()["body_preview"])
}

func TestProxyURL(t *testing.T) {
	u, err := ProxyURL("user:pass@10.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "10.0.0.1:8080", u.Host)
	assert.Equal(t, "user", u.User.Username())

	u, err = ProxyURL("socks5://h:1")
	require.NoError(t, err)
	assert.Equal(t, "socks5", u.Scheme)
}
