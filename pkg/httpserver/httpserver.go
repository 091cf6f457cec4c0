// Package httpserver defines the narrow contract between the request
// dispatcher (pkg/dispatch) and an HTTP server implementation (spec §6):
// the dispatcher only needs to register routes and read/write one request
// at a time, never the server's own concurrency or listener details.
package httpserver

import "context"

// IncomingRequest is what the server hands the dispatcher for one request.
type IncomingRequest struct {
	Method      string
	Path        string
	Query       map[string]string
	Headers     map[string]string
	RouteParams map[string]string
	Body        []byte
}

// ResponseSink is what the dispatcher writes a response through.
type ResponseSink interface {
	SetStatus(code int)
	SetHeader(name, value string)
	Write(body []byte) (int, error)
}

// HandlerFunc is invoked by the server for one matched route.
type HandlerFunc func(ctx context.Context, req *IncomingRequest, resp ResponseSink)

// Router is implemented by a concrete HTTP server binding (e.g.
// httpserver/stdhttp) so the dispatcher can register routes without
// depending on net/http directly.
type Router interface {
	Handle(method, path string, handler HandlerFunc)
}
