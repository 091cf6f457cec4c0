package stdhttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hull-run/hull/pkg/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouteParamsResolvedFromWildcard(t *testing.T) {
	s := New(testLogger())
	var captured *httpserver.IncomingRequest
	s.Handle("GET", "/users/{id}", func(ctx context.Context, req *httpserver.IncomingRequest, resp httpserver.ResponseSink) {
		captured = req
		resp.SetStatus(http.StatusOK)
		resp.Write([]byte("ok"))
	})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/users/42?verbose=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, captured)
	assert.Equal(t, "42", captured.RouteParams["id"])
	assert.Equal(t, "true", captured.Query["verbose"])
	assert.Equal(t, "/users/42", captured.Path)
}

func TestHeadersLowerCasedAndBodyForwarded(t *testing.T) {
	s := New(testLogger())
	var captured *httpserver.IncomingRequest
	s.Handle("POST", "/echo", func(ctx context.Context, req *httpserver.IncomingRequest, resp httpserver.ResponseSink) {
		captured = req
		resp.SetHeader("Content-Type", "text/plain")
		resp.SetStatus(http.StatusCreated)
		resp.Write(req.Body)
	})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/echo", strings.NewReader("hello"))
	require.NoError(t, err)
	req.Header.Set("X-Custom-Header", "abc")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "hello", string(body))
	require.NotNil(t, captured)
	assert.Equal(t, "abc", captured.Headers["x-custom-header"])
	assert.Equal(t, []byte("hello"), captured.Body)
}

func TestDefaultStatusIsOKWhenHandlerOnlyWrites(t *testing.T) {
	s := New(testLogger())
	s.Handle("GET", "/implicit", func(ctx context.Context, req *httpserver.IncomingRequest, resp httpserver.ResponseSink) {
		resp.Write([]byte("implicit ok"))
	})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/implicit")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
