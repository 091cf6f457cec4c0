package main

import (
	"context"
	"net/http"
	"time"

	"github.com/hull-run/hull/pkg/bundle/devtoken"
	"github.com/hull-run/hull/pkg/runtime"
	"github.com/hull-run/hull/pkg/runtime/devruntime"
)

// devTokenSecret signs the example app's /__devtoken route. It exists only
// for `hull dev`'s loopback convenience and is never used by the production
// bundle-verification path (pkg/bundle's Ed25519 signature).
var devTokenSecret = []byte("hull-dev-mode-only-not-a-real-secret")

// newExampleDevRuntime builds the small built-in example `hull dev` serves:
// a route that echoes its route parameter, an index route, and a route that
// issues a dev-mode token, demonstrating the dispatcher's
// full path (route match, request construction, handler invocation,
// response write) without requiring a compiled WASM guest.
func newExampleDevRuntime() *devruntime.Runtime {
	app := &devruntime.App{
		Routes: []runtime.Route{
			{Method: "GET", Path: "/hello/{name}", HandlerID: "dev.hello"},
			{Method: "GET", Path: "/", HandlerID: "dev.index"},
			{Method: "GET", Path: "/__devtoken/{subject}", HandlerID: "dev.devtoken"},
		},
		Handlers: map[string]devruntime.Handler{
			"dev.index": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				resp.SetHeader("Content-Type", "text/plain")
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("hull dev mode: no application loaded, serving the built-in example\n"))
				return err
			},
			"dev.hello": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				resp.SetHeader("Content-Type", "text/plain")
				resp.SetStatus(http.StatusOK)
				_, err := resp.Write([]byte("hello, " + req.RouteParams["name"] + "\n"))
				return err
			},
			"dev.devtoken": func(ctx context.Context, req *runtime.Request, resp runtime.ResponseWriter) error {
				token, err := devtoken.Issue(req.RouteParams["subject"], time.Hour, devTokenSecret)
				if err != nil {
					return err
				}
				resp.SetHeader("Content-Type", "text/plain")
				resp.SetStatus(http.StatusOK)
				_, err = resp.Write([]byte(token + "\n"))
				return err
			},
		},
	}
	rt := devruntime.New()
	rt.SetApp(app)
	return rt
}
