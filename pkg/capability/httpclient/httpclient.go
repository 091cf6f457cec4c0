// Package httpclient implements the HTTP client capability (spec §4.4):
// outbound requests gated by the manifest's host allowlist, with response
// headers normalized to lower case and response bodies bounded in size.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hull-run/hull/pkg/manifest"
	"golang.org/x/time/rate"
)

// MaxResponseBytes bounds a single response body (spec §4.4: "oversize
// responses fail rather than truncate").
const MaxResponseBytes = 10 << 20 // 10 MiB

// ErrHostDenied is returned when the request's target host is not in the
// manifest's hosts set.
var ErrHostDenied = fmt.Errorf("httpclient: host not in manifest hosts set")

// ErrResponseTooLarge is returned when a response body exceeds
// MaxResponseBytes.
var ErrResponseTooLarge = fmt.Errorf("httpclient: response body exceeds %d bytes", MaxResponseBytes)

// Response is the capability's return shape.
type Response struct {
	Status  int
	Headers map[string]string // lower-cased header names
	Body    []byte
}

// Capability mediates outbound HTTP requests.
type Capability struct {
	manifest *manifest.Manifest
	client   *http.Client
	limiters hostLimiters
}

// New builds an httpclient Capability. The default transport validates TLS
// certificates (spec §4.4: "certificate validation is on by default") —
// callers never get a hook to disable it.
func New(m *manifest.Manifest) *Capability {
	return &Capability{
		manifest: m,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiters: newHostLimiters(10, 20),
	}
}

// Request performs method against targetURL with the given headers and
// body, after checking the target host against the manifest and applying a
// per-host rate limit.
func (c *Capability) Request(ctx context.Context, method, targetURL string, headers map[string]string, body []byte) (*Response, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid URL: %w", err)
	}
	host := parsed.Hostname()
	if !c.manifest.AllowsHost(host) {
		return nil, fmt.Errorf("%w: %q", ErrHostDenied, host)
	}

	if err := c.limiters.wait(ctx, strings.ToLower(host)); err != nil {
		return nil, fmt.Errorf("httpclient: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpclient: building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, MaxResponseBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("httpclient: reading response: %w", err)
	}
	if len(data) > MaxResponseBytes {
		return nil, ErrResponseTooLarge
	}

	lowered := make(map[string]string, len(resp.Header))
	for k, vals := range resp.Header {
		if len(vals) > 0 {
			lowered[strings.ToLower(k)] = vals[0]
		}
	}

	return &Response{Status: resp.StatusCode, Headers: lowered, Body: data}, nil
}

// hostLimiters holds one token-bucket limiter per host, created lazily.
type hostLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newHostLimiters(rps int, burst int) hostLimiters {
	return hostLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (h *hostLimiters) wait(ctx context.Context, host string) error {
	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(h.rps, h.burst)
		h.limiters[host] = lim
	}
	h.mu.Unlock()
	return lim.Wait(ctx)
}
