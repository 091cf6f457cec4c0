// Package governance implements an optional request-time policy guard on
// top of the static manifest: an embedding deployment can load named CEL
// expressions evaluated against a request's method, path, host, route
// params, and headers, for constraints the manifest's allow-lists can't
// express on their own (rate/time-window limits, header-based routing
// rules). The static manifest alone is sufficient per spec.md — this is
// additive, never a substitute for it.
package governance

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
)

// Decision is the outcome of evaluating a Request against a named policy.
type Decision struct {
	PolicyID string
	Allowed  bool
	Reason   string
}

// Request is the subset of an inbound HTTP request a policy expression may
// inspect. Fields mirror runtime.Request's wire shape rather than
// importing pkg/runtime, so this package has no dependency on the
// dispatcher.
type Request struct {
	Method      string
	Path        string
	Host        string
	RouteParams map[string]string
	Headers     map[string]string
}

// PolicyEngine compiles and evaluates named CEL policies against Requests.
// Evaluating a policy id that has not been loaded denies; requests are only
// gated where a caller chooses to evaluate them.
type PolicyEngine struct {
	mu          sync.RWMutex
	env         *cel.Env
	programs    map[string]cel.Program
	definitions map[string]string
}

// NewPolicyEngine builds the CEL environment request policies are compiled
// against: method, path, host, route_params, and headers.
func NewPolicyEngine() (*PolicyEngine, error) {
	env, err := cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("method", types.StringType),
			decls.NewVariable("path", types.StringType),
			decls.NewVariable("host", types.StringType),
			decls.NewVariable("route_params", types.NewMapType(types.StringType, types.StringType)),
			decls.NewVariable("headers", types.NewMapType(types.StringType, types.StringType)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("governance: creating CEL environment: %w", err)
	}
	return &PolicyEngine{
		env:         env,
		programs:    make(map[string]cel.Program),
		definitions: make(map[string]string),
	}, nil
}

// LoadPolicy compiles source under policyID, replacing any prior policy
// with the same id. The expression must evaluate to a bool.
func (pe *PolicyEngine) LoadPolicy(policyID, source string) error {
	ast, issues := pe.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("governance: compiling policy %q: %w", policyID, issues.Err())
	}
	prg, err := pe.env.Program(ast)
	if err != nil {
		return fmt.Errorf("governance: constructing program for policy %q: %w", policyID, err)
	}

	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.programs[policyID] = prg
	pe.definitions[policyID] = source
	return nil
}

// Definitions returns a copy of every loaded policy's source, keyed by id.
func (pe *PolicyEngine) Definitions() map[string]string {
	pe.mu.RLock()
	defer pe.mu.RUnlock()
	out := make(map[string]string, len(pe.definitions))
	for k, v := range pe.definitions {
		out[k] = v
	}
	return out
}

// Evaluate runs policyID against req, fail-closed: a missing policy, a
// runtime evaluation error, or a non-bool result all deny rather than
// panic or default-allow.
func (pe *PolicyEngine) Evaluate(ctx context.Context, policyID string, req Request) (Decision, error) {
	pe.mu.RLock()
	prg, ok := pe.programs[policyID]
	pe.mu.RUnlock()

	decision := Decision{PolicyID: policyID}
	if !ok {
		decision.Reason = fmt.Sprintf("policy %q not found", policyID)
		return decision, nil
	}

	input := map[string]any{
		"method":       req.Method,
		"path":         req.Path,
		"host":         req.Host,
		"route_params": req.RouteParams,
		"headers":      req.Headers,
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		decision.Reason = fmt.Sprintf("evaluation error: %v", err)
		return decision, nil
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		decision.Reason = "policy expression did not evaluate to a bool"
		return decision, nil
	}
	decision.Allowed = allowed
	if allowed {
		decision.Reason = fmt.Sprintf("allowed by policy %q", policyID)
	} else {
		decision.Reason = fmt.Sprintf("denied by policy %q", policyID)
	}
	return decision, nil
}
