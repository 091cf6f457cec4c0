// Package runtime defines the host-side contract an embedded interpreter
// must satisfy (spec §4.8). Two interpreters are named in the
// specification — Lua 5.4 and an ES2023 JS engine — and both are treated as
// black boxes outside this module's scope; this package only defines the Go
// interface a concrete interpreter binding implements, plus a deterministic
// in-process stand-in (runtime/devruntime) used in this module's own tests
// and a WebAssembly-hosted stand-in (runtime/wasiruntime) that gives the
// same contract genuine memory/gas/global-removal isolation via wazero.
package runtime

import (
	"context"

	"github.com/hull-run/hull/pkg/capability/value"
)

// Config configures interpreter state at Init time (spec §4.8: "creates the
// interpreter state, installs the custom allocator... configures
// memory/stack/instruction caps").
type Config struct {
	HeapCapBytes   int64
	StackCapBytes  int64
	GasBudget      int64
	ArenaCapBytes  int
	ApplicationDir string
}

// Request is the interpreter-native request value constructed at dispatch
// step 3: method, path, parsed query, headers, parsed route parameters,
// body, and an initially empty context object.
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Headers     map[string]string
	RouteParams map[string]string
	Body        []byte
	Context     map[string]value.Value
}

// ResponseWriter is the interpreter-native response handle whose methods
// write through to the HTTP server's response object (spec §4.8 step 4).
type ResponseWriter interface {
	SetStatus(code int)
	SetHeader(name, value string)
	Write(body []byte) (int, error)
}

// Route pairs an HTTP method+path pattern with the handler id the script
// registered for it.
type Route struct {
	Method    string
	Path      string
	HandlerID string
}

// Middleware pairs a (method, path) match pattern with the handler id of a
// middleware function. Empty Method/Path match every route.
type Middleware struct {
	Method    string
	Path      string
	HandlerID string
}

// RouteTable is populated by WireRoutes from the script's own route and
// middleware declarations.
type RouteTable struct {
	Routes      []Route
	Middlewares []Middleware
}

// Runtime is the host-side contract every interpreter binding implements
// (spec §4.8).
type Runtime interface {
	// Init creates interpreter state: allocator, capability module
	// registration, forbidden-global removal, memory/stack/instruction
	// caps, module loader installation.
	Init(ctx context.Context, cfg Config) error

	// LoadApp reads the entry-point file at path, compiles and evaluates it
	// as a module, and records the application directory for relative
	// import resolution.
	LoadApp(ctx context.Context, path string) error

	// WireRoutes iterates the script-populated route and middleware tables
	// and returns them for the HTTP server to register.
	WireRoutes(ctx context.Context) (RouteTable, error)

	// ExtractManifest reads the manifest table from interpreter globals,
	// per spec §4.7.
	ExtractManifest(ctx context.Context) (any, error)

	// Dispatch invokes the handler registered under handlerID with req,
	// writing the result through resp.
	Dispatch(ctx context.Context, handlerID string, req *Request, resp ResponseWriter) error

	// Destroy releases all resources owned by the interpreter state.
	Destroy(ctx context.Context) error
}
