// Package httpapi serves the JSON API used by the browser visualizations and
// the static frontend bundle.
package httpapi

import (
	"context"
	"net"
	"net/http"

	"golang.org/x/net/netutil"

	"github.com/dimalipin/netviz/internal/catalog"
	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/observability"
	"github.com/dimalipin/netviz/internal/sim/state"
)

const requestIDHeader = "X-Request-ID"

// Server holds the collaborators behind the HTTP routes.
type Server struct {
	sim       *state.Simulation
	inspector *ipheader.Inspector
	catalog   *catalog.Catalog
	distPath  string
	collector *observability.APICollector
	log       logging.Logger
}

// Option customises Server construction.
type Option func(*Server)

// WithInspector shares a header inspector with other surfaces.
func WithInspector(i *ipheader.Inspector) Option {
	return func(s *Server) {
		if i != nil {
			s.inspector = i
		}
	}
}

// WithCatalog sets the visualization cards served by /api/visualizations.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithStaticDir serves files from dir for every non-API path.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.distPath = dir }
}

// WithCollector instruments every route.
func WithCollector(c *observability.APICollector) Option {
	return func(s *Server) { s.collector = c }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Server over sim.
func New(sim *state.Simulation, opts ...Option) *Server {
	s := &Server{
		sim:       sim,
		inspector: ipheader.NewInspector(),
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /api/hello", "hello", s.handleHello)
	s.route(mux, "GET /api/visualizations", "visualizations", s.handleVisualizations)
	s.route(mux, "GET /api/simulation/frame", "frame", s.handleFrame)
	s.route(mux, "POST /api/simulation/send", "send", s.handleSend)
	s.route(mux, "POST /api/simulation/reset", "reset", s.handleReset)
	s.route(mux, "GET /api/simulation/runs", "runs", s.handleRuns)
	s.route(mux, "GET /api/simulation/scene", "scene", s.handleScene)
	s.route(mux, "GET /api/topology/routing-tables", "routing_tables", s.handleRoutingTables)
	s.route(mux, "GET /api/ipheader/fields", "ipheader_fields", s.handleFields)
	s.route(mux, "GET /api/ipheader/fields/{key}", "ipheader_field", s.handleField)
	s.route(mux, "POST /api/ipheader/selection", "ipheader_select", s.handleSelect)
	s.route(mux, "GET /api/ipheader/packet", "ipheader_packet", s.handlePacket)
	if s.distPath != "" {
		mux.Handle("/", s.collector.InstrumentHTTP("static", http.FileServer(http.Dir(s.distPath))))
	}
	return s.withRequestID(withCORS(mux))
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.Handle(pattern, s.collector.InstrumentHTTP(name, h))
}

// Listen opens a TCP listener on addr that accepts at most maxConns
// simultaneous connections. maxConns <= 0 means unlimited.
func Listen(addr string, maxConns int) (net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		lis = netutil.LimitListener(lis, maxConns)
	}
	return lis, nil
}

// NewHTTPServer wraps h in an http.Server whose request contexts derive
// from base.
func NewHTTPServer(base context.Context, h http.Handler) *http.Server {
	return &http.Server{
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return base },
	}
}

// withCORS sets the permissive CORS headers the frontend relies on and
// answers preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(requestIDHeader); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, s.log.With(
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))
		reqLog.Debug(ctx, "http request")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
