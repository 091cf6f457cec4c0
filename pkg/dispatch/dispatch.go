// Package dispatch implements the per-request flow spec §4.9 describes:
// stale-transaction guard, arena reset, request/response construction,
// middleware chain with short-circuit, primary handler invocation, and
// error-to-500 translation. It is the one package that wires together
// runtime.Runtime, the database capability's stale-transaction guard, and
// an httpserver.Router — none of which otherwise know about each other.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/hull-run/hull/pkg/arena"
	"github.com/hull-run/hull/pkg/capability/value"
	"github.com/hull-run/hull/pkg/governance"
	"github.com/hull-run/hull/pkg/httpserver"
	"github.com/hull-run/hull/pkg/kernel"
	"github.com/hull-run/hull/pkg/runtime"
)

// TxnGuard is the subset of the database capability the dispatcher needs:
// rolling back any transaction a prior, crashed handler left open (spec
// §4.9 step 1). Satisfied by *db.Capability; declared narrowly here so
// devruntime-only tests can run without a real database.
type TxnGuard interface {
	GuardStaleTxn() error
}

// shortCircuitKey is the reserved Request.Context key a middleware handler
// sets to signal a short-circuit. Spec §6 describes middleware as C
// functions returning an int (0 = continue, non-zero = stop); this core
// has no side channel for a return code out of runtime.Runtime.Dispatch,
// so the same signal travels through the shared context object the spec
// already has middleware and handler exchange canonical-text state through.
const shortCircuitKey = "__hull_short_circuit"

// Dispatcher binds one loaded runtime.Runtime to an httpserver.Router,
// implementing spec §4.9 for every route the runtime's route table names.
type Dispatcher struct {
	rt            runtime.Runtime
	txn           TxnGuard // nil if the application declares no database use
	logger        *slog.Logger
	arenaCapBytes int

	// policy and policyID are nil/empty unless an embedding deployment
	// opts into a request-time policy guard beyond the static manifest
	// (spec.md's manifest alone remains sufficient without this).
	policy   *governance.PolicyEngine
	policyID string
}

// New constructs a Dispatcher. txn may be nil for applications that never
// open a database capability.
func New(rt runtime.Runtime, txn TxnGuard, logger *slog.Logger, arenaCapBytes int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if arenaCapBytes <= 0 {
		arenaCapBytes = 64 << 10
	}
	return &Dispatcher{rt: rt, txn: txn, logger: logger, arenaCapBytes: arenaCapBytes}
}

// WithPolicy installs an optional request-time policy guard: every request
// is evaluated against policyID before middleware runs, and denied
// requests never reach the interpreter. Passing a nil engine clears any
// previously installed guard.
func (d *Dispatcher) WithPolicy(engine *governance.PolicyEngine, policyID string) *Dispatcher {
	d.policy = engine
	d.policyID = policyID
	return d
}

// Register walks table's routes, resolves each route's matching
// middlewares, and registers one httpserver.HandlerFunc per route.
func (d *Dispatcher) Register(router httpserver.Router, table runtime.RouteTable) {
	for _, route := range table.Routes {
		route := route
		mws := matchingMiddlewares(table.Middlewares, route.Method, route.Path)
		router.Handle(route.Method, route.Path, d.handlerFor(route, mws))
	}
}

// matchingMiddlewares returns, in registration order, every middleware
// whose Method/Path matches route's (empty field = wildcard), per spec
// §4.9 step 5 "middleware registered that matches (method, path)".
func matchingMiddlewares(mws []runtime.Middleware, method, path string) []runtime.Middleware {
	var out []runtime.Middleware
	for _, mw := range mws {
		if (mw.Method == "" || mw.Method == method) && (mw.Path == "" || mw.Path == path) {
			out = append(out, mw)
		}
	}
	return out
}

func (d *Dispatcher) handlerFor(route runtime.Route, mws []runtime.Middleware) httpserver.HandlerFunc {
	return func(ctx context.Context, req *httpserver.IncomingRequest, resp httpserver.ResponseSink) {
		d.dispatchOne(ctx, route, mws, req, resp)
	}
}

// dispatchOne runs spec §4.9's eight steps for one request.
func (d *Dispatcher) dispatchOne(ctx context.Context, route runtime.Route, mws []runtime.Middleware, req *httpserver.IncomingRequest, sink httpserver.ResponseSink) {
	traceID := uuid.NewString()
	logger := d.logger.With("trace_id", traceID, "method", route.Method, "path", route.Path)

	// Step 1: roll back any transaction a previously crashed handler left open.
	if d.txn != nil {
		if err := d.txn.GuardStaleTxn(); err != nil {
			logger.Error("dispatch: guard_stale_txn failed", "error", err)
		}
	}

	// Step 2: fresh per-request arena. Capability buffers that would live
	// here in the C original are ordinary Go-GC'd allocations; the arena
	// still exists (pkg/arena) so request-scoped temporaries have a single
	// reset point to bound against, matching the budget the spec assigns it.
	reqArena := arena.New(d.arenaCapBytes)
	defer reqArena.Reset()

	// Step 3: construct the interpreter-native request.
	rtReq := &runtime.Request{
		Method:      req.Method,
		Path:        req.Path,
		Query:       req.Query,
		Headers:     req.Headers,
		RouteParams: req.RouteParams,
		Body:        req.Body,
		Context:     map[string]value.Value{},
	}

	// Step 4: construct the interpreter-native response handle.
	rtResp := &responseWriterAdapter{sink: sink}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch: handler panicked", "panic", r)
			writeFatal(sink)
		}
	}()

	// Optional policy guard, ahead of the middleware chain: denies never
	// reach the interpreter. No-op unless WithPolicy installed an engine.
	if d.policy != nil {
		dec, err := d.policy.Evaluate(ctx, d.policyID, governance.Request{
			Method:      rtReq.Method,
			Path:        rtReq.Path,
			Host:        rtReq.Headers["host"],
			RouteParams: rtReq.RouteParams,
			Headers:     rtReq.Headers,
		})
		if err != nil {
			logger.Error("dispatch: policy evaluation failed", "error", err)
			writeFatal(sink)
			return
		}
		if !dec.Allowed {
			logger.Warn("dispatch: request denied by policy", "reason", dec.Reason)
			writeDenied(sink, dec.Reason)
			return
		}
	}

	// Step 5: middleware chain, in order, short-circuiting on signal.
	for _, mw := range mws {
		if err := d.rt.Dispatch(ctx, mw.HandlerID, rtReq, rtResp); err != nil {
			logger.Error("dispatch: middleware failed", "handler_id", mw.HandlerID, "error", err)
			writeFatal(sink)
			return
		}
		if err := canonicalizeContext(rtReq); err != nil {
			logger.Error("dispatch: canonicalizing middleware context failed", "error", err)
			writeFatal(sink)
			return
		}
		if shortCircuited(rtReq) {
			return
		}
	}

	// Step 6: primary handler invocation.
	if err := d.rt.Dispatch(ctx, route.HandlerID, rtReq, rtResp); err != nil {
		logger.Error("dispatch: handler failed", "handler_id", route.HandlerID, "error", err)
		writeFatal(sink)
		return
	}

	// Step 7: microtask drain. devruntime and wasiruntime are both
	// synchronous hosts with no microtask queue (spec's "Ordering
	// guarantees": handlers don't suspend in this design); a real
	// JS-engine Runtime would drain its own queue inside Dispatch before
	// returning, so there is nothing left to do here.

	// Step 8: result status already reached the HTTP server through
	// rtResp as the handler wrote it.
}

// canonicalizeContext re-serializes req.Context to RFC 8785 canonical JSON
// and stores the result back under the reserved canonical-text key, per
// spec §4.9 step 5 ("the middleware's context object is serialized to a
// canonical text form... so the next stage sees it").
func canonicalizeContext(req *runtime.Request) error {
	plain := make(map[string]any, len(req.Context))
	for k, v := range req.Context {
		if k == canonicalContextKey {
			continue
		}
		plain[k] = value.ToGo(v)
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return err
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return err
	}
	req.Context[canonicalContextKey] = value.Text(string(canon))
	return nil
}

const canonicalContextKey = "__hull_canonical_context"

func shortCircuited(req *runtime.Request) bool {
	v, ok := req.Context[shortCircuitKey]
	if !ok {
		return false
	}
	b, _ := v.Bool()
	return b
}

// writeFatal writes the fixed 500 response spec §4.9 prescribes for any
// interpreter-level handler error: "the dispatcher logs the stack trace
// and emits a 500 response with Content-Type: text/plain".
func writeFatal(sink httpserver.ResponseSink) {
	sink.SetHeader("Content-Type", "text/plain")
	sink.SetStatus(http.StatusInternalServerError)
	sink.Write([]byte(kernel.New(kernel.KindFatal, "dispatch", "handler invocation failed").Error()))
}

// writeDenied writes the structured error body for a policy-guard denial.
func writeDenied(sink httpserver.ResponseSink, reason string) {
	errIR := kernel.New(kernel.KindDenied, "dispatch.policy", reason)
	body, err := json.Marshal(errIR)
	if err != nil {
		writeFatal(sink)
		return
	}
	sink.SetHeader("Content-Type", "application/json")
	sink.SetStatus(errIR.StatusCode())
	sink.Write(body)
}

// responseWriterAdapter implements runtime.ResponseWriter over an
// httpserver.ResponseSink (spec §4.9 step 4).
type responseWriterAdapter struct {
	sink httpserver.ResponseSink
}

func (a *responseWriterAdapter) SetStatus(code int)             { a.sink.SetStatus(code) }
func (a *responseWriterAdapter) SetHeader(name, value string)   { a.sink.SetHeader(name, value) }
func (a *responseWriterAdapter) Write(body []byte) (int, error) { return a.sink.Write(body) }
