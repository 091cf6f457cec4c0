// Package stdhttp implements httpserver.Router on top of net/http's
// ServeMux, using Go's built-in method+pattern routing (e.g. "GET
// /users/{id}") rather than a third-party router — the same minimal
// approach the reference console server in this codebase's lineage takes
// for its own HTTP surface.
package stdhttp

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hull-run/hull/pkg/httpserver"
)

// Server wraps a ServeMux, translating net/http
// requests into httpserver.IncomingRequest/ResponseSink.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// New constructs a Server.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{mux: http.NewServeMux(), logger: logger}
}

// Handle registers handler for method+path, implementing httpserver.Router.
// path may use Go 1.22+ ServeMux wildcard syntax (e.g. "/users/{id}");
// wildcard values are resolved into IncomingRequest.RouteParams.
func (s *Server) Handle(method, path string, handler httpserver.HandlerFunc) {
	pattern := method + " " + path
	paramNames := wildcardNames(path)
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		req, err := toIncomingRequest(r, paramNames)
		if err != nil {
			s.logger.Error("stdhttp: reading request body", "error", err, "path", path)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		sink := &responseSink{w: w}
		handler(r.Context(), req, sink)
	})
}

// wildcardNames extracts the {name} wildcard segments from a ServeMux
// pattern, in order, so they can be resolved via r.PathValue per request.
func wildcardNames(path string) []string {
	var names []string
	for _, seg := range strings.Split(path, "/") {
		if len(seg) >= 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
			name := strings.TrimSuffix(seg[1:len(seg)-1], "...")
			names = append(names, name)
		}
	}
	return names
}

// Handler returns the underlying http.Handler for use with http.Server or
// httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func toIncomingRequest(r *http.Request, paramNames []string) (*httpserver.IncomingRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	headers := make(map[string]string)
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}

	routeParams := make(map[string]string, len(paramNames))
	for _, name := range paramNames {
		routeParams[name] = r.PathValue(name)
	}

	return &httpserver.IncomingRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       query,
		Headers:     headers,
		RouteParams: routeParams,
		Body:        body,
	}, nil
}

type responseSink struct {
	w           http.ResponseWriter
	wroteHeader bool
}

func (s *responseSink) SetStatus(code int) {
	if !s.wroteHeader {
		s.w.WriteHeader(code)
		s.wroteHeader = true
	}
}

func (s *responseSink) SetHeader(name, value string) {
	s.w.Header().Set(name, value)
}

func (s *responseSink) Write(body []byte) (int, error) {
	if !s.wroteHeader {
		s.w.WriteHeader(http.StatusOK)
		s.wroteHeader = true
	}
	return s.w.Write(body)
}
