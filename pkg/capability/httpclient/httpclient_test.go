package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hull-run/hull/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestAllowing(t *testing.T, host string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(manifest.Raw{Hosts: []string{host}})
	require.NoError(t, err)
	return m
}

func TestRequestDeniesHostNotInManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, err := manifest.Parse(manifest.Raw{Hosts: []string{"other.example.com"}})
	require.NoError(t, err)
	c := New(m)

	_, err = c.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrHostDenied)
}

func TestRequestAllowsHostInManifestCaseInsensitive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom-Header", "value")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	m := manifestAllowing(t, strings.ToUpper(parsed.Hostname()))
	c := New(m)

	resp, err := c.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "hello", string(resp.Body))
	assert.Equal(t, "value", resp.Headers["x-custom-header"], "response headers must be lower-cased")
}

func TestRequestRejectsOversizeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, MaxResponseBytes+1)
		_, _ = w.Write(buf)
	}))
	defer srv.Close()

	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	m := manifestAllowing(t, parsed.Hostname())
	c := New(m)

	_, err = c.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestRequestSendsHeadersAndBody(t *testing.T) {
	var gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test")
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	m := manifestAllowing(t, parsed.Hostname())
	c := New(m)

	resp, err := c.Request(context.Background(), http.MethodPost, srv.URL,
		map[string]string{"X-Test": "abc"}, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "abc", gotHeader)
	assert.Equal(t, "payload", gotBody)
}
