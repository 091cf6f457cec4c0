// Package devruntime is a deterministic in-process stand-in for an embedded
// interpreter, satisfying the runtime.Runtime contract without Lua or a JS
// engine. It is used by this module's own dispatcher and CLI tests,
// and by `hull dev` for local iteration without a platform's interpreter
// embedded: handlers are plain Go closures registered directly, rather than
// loaded from a script file.
package devruntime

import (
	"context"
	"fmt"
	"sync"

	"github.com/hull-run/hull/pkg/runtime"
)

// Handler is the Go-native equivalent of a script-registered handler
// function.
type Handler func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error

// App is the handler/route/manifest bundle a devruntime "loads" in place of
// reading a script file. Tests and `hull dev` construct one directly.
type App struct {
	Routes      []runtime.Route
	Middlewares []runtime.Middleware
	Handlers    map[string]Handler
	Manifest    any // decoded manifest document, or nil for an empty manifest
}

// Runtime implements runtime.Runtime entirely in-process.
type Runtime struct {
	mu        sync.Mutex
	cfg       runtime.Config
	app       *App
	loaded    bool
	destroyed bool
}

// New constructs an unloaded Runtime. Call SetApp before Init/LoadApp to
// supply the handler table an application would otherwise expose via
// script globals.
func New() *Runtime {
	return &Runtime{}
}

// SetApp installs the handler/route/manifest table this Runtime will serve.
// Devruntime has no script file to parse — this is the load-time
// equivalent for tests and `hull dev`.
func (r *Runtime) SetApp(app *App) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.app = app
}

func (r *Runtime) Init(ctx context.Context, cfg runtime.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	return nil
}

func (r *Runtime) LoadApp(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app == nil {
		return fmt.Errorf("devruntime: no app installed via SetApp before LoadApp(%q)", path)
	}
	r.loaded = true
	return nil
}

func (r *Runtime) WireRoutes(ctx context.Context) (runtime.RouteTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return runtime.RouteTable{}, fmt.Errorf("devruntime: WireRoutes called before LoadApp")
	}
	return runtime.RouteTable{Routes: r.app.Routes, Middlewares: r.app.Middlewares}, nil
}

func (r *Runtime) ExtractManifest(ctx context.Context) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return nil, fmt.Errorf("devruntime: ExtractManifest called before LoadApp")
	}
	return r.app.Manifest, nil
}

func (r *Runtime) Dispatch(ctx context.Context, handlerID string, req *runtime.Request, resp runtime.ResponseWriter) error {
	r.mu.Lock()
	app := r.app
	r.mu.Unlock()

	if app == nil {
		return fmt.Errorf("devruntime: Dispatch called before LoadApp")
	}
	h, ok := app.Handlers[handlerID]
	if !ok {
		return fmt.Errorf("devruntime: no handler registered for id %q", handlerID)
	}
	return h(ctx, req, resp)
}

func (r *Runtime) Destroy(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = true
	return nil
}
