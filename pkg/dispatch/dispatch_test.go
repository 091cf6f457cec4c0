package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hull-run/hull/pkg/capability/value"
	"github.com/hull-run/hull/pkg/governance"
	"github.com/hull-run/hull/pkg/httpserver/stdhttp"
	"github.com/hull-run/hull/pkg/runtime"
	"github.com/hull-run/hull/pkg/runtime/devruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxnGuard struct {
	calls int
	err   error
}

func (f *fakeTxnGuard) GuardStaleTxn() error {
	f.calls++
	return f.err
}

func newDevRuntime(t *testing.T, app *devruntime.App) *devruntime.Runtime {
	t.Helper()
	rt := devruntime.New()
	rt.SetApp(app)
	require.NoError(t, rt.Init(context.Background(), runtime.Config{}))
	require.NoError(t, rt.LoadApp(context.Background(), "app.lua"))
	return rt
}

func TestDispatchInvokesHandlerAndGuardsStaleTxn(t *testing.T) {
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "GET", Path: "/hello/{name}", HandlerID: "hello"}},
		Handlers: map[string]devruntime.Handler{
			"hello": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("hello " + req.RouteParams["name"]))
				return err
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	txn := &fakeTxnGuard{}
	d := New(rt, txn, testLogger(), 4096)
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/hello/world")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello world", string(body))
	assert.Equal(t, 1, txn.calls, "guard_stale_txn should run once per request")
}

func TestDispatchWritesPlainText500OnHandlerError(t *testing.T) {
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "GET", Path: "/boom", HandlerID: "boom"}},
		Handlers: map[string]devruntime.Handler{
			"boom": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				return errors.New("interpreter fault")
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	d := New(rt, nil, testLogger(), 4096)
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/boom")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}

func TestDispatchWritesPlainText500OnHandlerPanic(t *testing.T) {
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "GET", Path: "/panic", HandlerID: "panic"}},
		Handlers: map[string]devruntime.Handler{
			"panic": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				panic("unreachable")
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	d := New(rt, nil, testLogger(), 4096)
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/panic")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMiddlewareShortCircuitSkipsPrimaryHandler(t *testing.T) {
	handlerCalled := false
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "GET", Path: "/guarded", HandlerID: "primary"}},
		Middlewares: []runtime.Middleware{
			{Method: "GET", Path: "/guarded", HandlerID: "auth"},
		},
		Handlers: map[string]devruntime.Handler{
			"auth": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				req.Context[shortCircuitKey] = value.Bool(true)
				resp.SetStatus(http.StatusUnauthorized)
				_, err := resp.Write([]byte("denied"))
				return err
			},
			"primary": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				handlerCalled = true
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("ok"))
				return err
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	d := New(rt, nil, testLogger(), 4096)
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/guarded")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "denied", string(body))
	assert.False(t, handlerCalled, "short-circuited middleware must prevent the primary handler from running")
}

func TestMiddlewareContinuesChainWithoutShortCircuit(t *testing.T) {
	order := []string{}
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "GET", Path: "/chain", HandlerID: "primary"}},
		Middlewares: []runtime.Middleware{
			{Method: "GET", Path: "/chain", HandlerID: "first"},
			{Method: "GET", Path: "/chain", HandlerID: "second"},
		},
		Handlers: map[string]devruntime.Handler{
			"first": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				order = append(order, "first")
				return nil
			},
			"second": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				order = append(order, "second")
				return nil
			},
			"primary": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				order = append(order, "primary")
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("done"))
				return err
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	d := New(rt, nil, testLogger(), 4096)
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/chain")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"first", "second", "primary"}, order)
}

func TestPolicyGuardDeniesBeforeMiddlewareOrHandlerRun(t *testing.T) {
	middlewareCalled, handlerCalled := false, false
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "POST", Path: "/admin", HandlerID: "primary"}},
		Middlewares: []runtime.Middleware{
			{Method: "POST", Path: "/admin", HandlerID: "mw"},
		},
		Handlers: map[string]devruntime.Handler{
			"mw": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				middlewareCalled = true
				return nil
			},
			"primary": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				handlerCalled = true
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("ok"))
				return err
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	engine, err := governance.NewPolicyEngine()
	require.NoError(t, err)
	require.NoError(t, engine.LoadPolicy("reads-only", `method == "GET"`))

	d := New(rt, nil, testLogger(), 4096).WithPolicy(engine, "reads-only")
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/admin", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, middlewareCalled, "policy denial must skip middleware")
	assert.False(t, handlerCalled, "policy denial must skip the primary handler")
}

func TestPolicyGuardAllowsMatchingRequestsThrough(t *testing.T) {
	app := &devruntime.App{
		Routes: []runtime.Route{{Method: "GET", Path: "/admin", HandlerID: "primary"}},
		Handlers: map[string]devruntime.Handler{
			"primary": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("ok"))
				return err
			},
		},
	}
	rt := newDevRuntime(t, app)
	table, err := rt.WireRoutes(context.Background())
	require.NoError(t, err)

	engine, err := governance.NewPolicyEngine()
	require.NoError(t, err)
	require.NoError(t, engine.LoadPolicy("reads-only", `method == "GET"`))

	d := New(rt, nil, testLogger(), 4096).WithPolicy(engine, "reads-only")
	server := stdhttp.New(testLogger())
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/admin")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMatchingMiddlewaresWildcardOnEmptyMethodOrPath(t *testing.T) {
	mws := []runtime.Middleware{
		{Method: "", Path: "", HandlerID: "global"},
		{Method: "GET", Path: "/only", HandlerID: "specific"},
	}
	got := matchingMiddlewares(mws, "POST", "/anything")
	require.Len(t, got, 1)
	assert.Equal(t, "global", got[0].HandlerID)
}
