package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-threatgraph/pkg/auth"
	"github.com/dd0wney/cluso-threatgraph/pkg/config"
	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
	"github.com/dd0wney/cluso-threatgraph/pkg/graphql"
	"github.com/dd0wney/cluso-threatgraph/pkg/health"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/dd0wney/cluso-threatgraph/pkg/ti"
)

// maxBodyBytes bounds request bodies; bulk lookups dominate the budget
const maxBodyBytes = 4 << 20

// Server is the HTTP API over one entity graph and a set of threat-intel
// providers. The graph builder is not concurrency-safe, so the server
// serializes access with its own lock.
type Server struct {
	mu       sync.RWMutex
	builder  *entitygraph.Builder
	provider map[string]*ti.Provider
	// order preserves provider registration order for /usage
	order []string

	graphqlHandler *graphql.GraphQLHandler
	checker        *health.HealthChecker
	tokens         *auth.TokenService
	apiKeys        *auth.APIKeyStore

	cfg       *config.Config
	logger    logging.Logger
	metrics   *metrics.Registry
	startTime time.Time
	httpSrv   *http.Server
}

// NewServer wires the API server. Providers are addressed by backend name;
// auth is enabled when the config says so.
func NewServer(cfg *config.Config, builder *entitygraph.Builder, providers []*ti.Provider, logger logging.Logger, reg *metrics.Registry) (*Server, error) {
	if builder == nil {
		var err error
		builder, err = entitygraph.New(nil)
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}

	s := &Server{
		builder:   builder,
		provider:  make(map[string]*ti.Provider, len(providers)),
		cfg:       cfg,
		logger:    logger.With(logging.Component("api")),
		metrics:   reg,
		startTime: time.Now(),
	}
	for _, p := range providers {
		if _, dup := s.provider[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate provider name %q", p.Name())
		}
		s.provider[p.Name()] = p
		s.order = append(s.order, p.Name())
	}

	if cfg != nil && cfg.Auth.Enabled {
		tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("auth setup: %w", err)
		}
		s.tokens = tokens
		s.apiKeys = auth.NewAPIKeyStore()
	}

	schema, err := graphql.GenerateSchema(func() *entitygraph.Graph {
		return s.builder.Graph()
	})
	if err != nil {
		return nil, fmt.Errorf("graphql schema: %w", err)
	}
	s.graphqlHandler = graphql.NewGraphQLHandler(schema)

	s.checker = health.NewHealthChecker()
	s.checker.RegisterCheck("graph", health.GraphCheck(func() (int, int) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		g := s.builder.Graph()
		return g.NodeCount(), g.EdgeCount()
	}))
	s.checker.RegisterCheck("providers", health.ProvidersCheck(func() []string {
		return s.ProviderNames()
	}))
	s.checker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	return s, nil
}

// ProviderNames returns the registered provider names in registration order
func (s *Server) ProviderNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// APIKeys exposes the key store so operators can issue keys at startup.
// Nil when auth is disabled.
func (s *Server) APIKeys() *auth.APIKeyStore {
	return s.apiKeys
}

// Handler assembles the route table and middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.checker.HTTPHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(
		s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/graph/nodes", s.protect(s.handleNodes, true))
	mux.HandleFunc("/graph/nodes/", s.protect(s.handleNode, true))
	mux.HandleFunc("/graph/links", s.protect(s.handleLinks, true))
	mux.HandleFunc("/graph/notes", s.protect(s.handleNotes, true))
	mux.HandleFunc("/graph/table", s.protect(s.handleTable, false))
	mux.HandleFunc("/graph/render", s.protect(s.handleRender, false))

	mux.HandleFunc("/lookup", s.protect(s.handleLookup, true))
	mux.HandleFunc("/lookup/bulk", s.protect(s.handleBulkLookup, true))
	mux.HandleFunc("/usage", s.protect(s.handleUsage, false))

	mux.HandleFunc("/graphql", s.protect(s.handleGraphQL, false))
	mux.HandleFunc("/auth/token", s.handleToken)

	var handler http.Handler = mux
	handler = s.bodySizeLimitMiddleware(handler, maxBodyBytes)
	handler = s.metricsMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	host := "0.0.0.0"
	port := 8090
	readTimeout := 15 * time.Second
	writeTimeout := 30 * time.Second
	if s.cfg != nil {
		host = s.cfg.Server.Host
		port = s.cfg.Server.Port
		readTimeout = s.cfg.Server.ReadTimeout
		writeTimeout = s.cfg.Server.WriteTimeout
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("server starting", logging.String("addr", addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	// resolvers read the live graph; hold the read lock for the query
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.graphqlHandler.ServeHTTP(w, r)
}

// handleToken exchanges a valid API key for a short-lived access token
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		s.respondError(w, http.StatusNotFound, "authentication is disabled")
		return
	}
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.apiKeys.VerifyKey(req.APIKey)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid API key")
		return
	}

	token, err := s.tokens.GenerateToken(record.ID, record.Role)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.respondJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		Role:      record.Role,
		ExpiresIn: s.tokens.GetTokenDuration().String(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondGraphError maps builder errors onto status codes: a reference to
// a missing node or edge is 404, any other caller mistake is 400.
func (s *Server) respondGraphError(w http.ResponseWriter, err error, missingIs404 bool) {
	if entitygraph.IsUserInputError(err) {
		status := http.StatusBadRequest
		if missingIs404 {
			status = http.StatusNotFound
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}
