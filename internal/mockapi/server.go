// Package mockapi serves a stand-in backend for every catalog endpoint.
package mockapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"api-conformance/internal/registry"
	"api-conformance/internal/types"

	"github.com/gorilla/mux"
)

// Login response shapes understood by the harness.
const (
	ShapeDataAccessToken  = "data.accessToken"
	ShapeDataAccessTokenS = "data.access_token"
	ShapeAccessToken      = "accessToken"
	ShapeToken            = "token"
)

// Options configures the mock backend.
type Options struct {
	LoginPath   string
	LoginStatus int
	LoginShape  string
	Token       string
	// DefaultStatus answers every catalog route without an override.
	DefaultStatus int
	// Statuses overrides the answer per "METHOD /template" key.
	Statuses map[string]int
	// RequireAuth answers 401 to requests without the expected bearer token.
	RequireAuth bool
}

func (o *Options) setDefaults() {
	if o.LoginPath == "" {
		o.LoginPath = "/auth/login"
	}
	if o.LoginStatus == 0 {
		o.LoginStatus = http.StatusOK
	}
	if o.LoginShape == "" {
		o.LoginShape = ShapeDataAccessToken
	}
	if o.Token == "" {
		o.Token = "mock-token"
	}
	if o.DefaultStatus == 0 {
		o.DefaultStatus = http.StatusOK
	}
}

// Server is an http.Handler answering every catalog route.
type Server struct {
	router *mux.Router
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	hits map[string]int
}

// New registers the login route and one route per distinct catalog endpoint.
// Templates that do not parse are skipped.
func New(c *registry.Catalog, opts Options, logger *slog.Logger) *Server {
	opts.setDefaults()
	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		logger: logger,
		hits:   make(map[string]int),
	}

	s.router.HandleFunc(opts.LoginPath, s.loginHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.statusHandler).Methods(http.MethodGet)

	for _, e := range routes(c) {
		s.router.HandleFunc(e.Path, s.endpointHandler(e)).Methods(string(e.Method))
	}
	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)
	return s
}

// routes returns distinct parseable endpoints, fewest placeholders first so
// literal routes win over parameterised siblings.
func routes(c *registry.Catalog) []types.EndpointSpec {
	type route struct {
		spec   types.EndpointSpec
		params int
	}
	seen := make(map[string]bool)
	var out []route
	for _, m := range c.Modules() {
		for _, e := range m.Endpoints {
			if seen[e.Key()] {
				continue
			}
			t, err := registry.ParseTemplate(e.Path)
			if err != nil {
				continue
			}
			seen[e.Key()] = true
			out = append(out, route{spec: e, params: len(t.Params())})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].params < out[j].params })

	specs := make([]types.EndpointSpec, len(out))
	for i, r := range out {
		specs[i] = r.spec
	}
	return specs
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hits returns how many times each "METHOD /template" route was called.
func (s *Server) Hits() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.hits))
	for k, v := range s.hits {
		out[k] = v
	}
	return out
}

func (s *Server) record(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[key]++
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	s.record(http.MethodPost + " " + s.opts.LoginPath)

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	if s.opts.LoginStatus != http.StatusOK && s.opts.LoginStatus != http.StatusCreated {
		writeJSON(w, s.opts.LoginStatus, map[string]any{"error": "login rejected"})
		return
	}

	var body map[string]any
	switch s.opts.LoginShape {
	case ShapeDataAccessToken:
		body = map[string]any{"data": map[string]any{"accessToken": s.opts.Token}}
	case ShapeDataAccessTokenS:
		body = map[string]any{"data": map[string]any{"access_token": s.opts.Token}}
	case ShapeAccessToken:
		body = map[string]any{"accessToken": s.opts.Token}
	case ShapeToken:
		body = map[string]any{"token": s.opts.Token}
	default:
		body = map[string]any{"user": map[string]any{"email": creds.Email}}
	}
	writeJSON(w, s.opts.LoginStatus, body)
}

func (s *Server) endpointHandler(e types.EndpointSpec) http.HandlerFunc {
	key := e.Key()
	return func(w http.ResponseWriter, r *http.Request) {
		s.record(key)

		if s.opts.RequireAuth && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}

		if e.Method.Mutating() {
			data, err := io.ReadAll(r.Body)
			if err != nil || (len(data) > 0 && !json.Valid(data)) {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
				return
			}
		}

		status := s.opts.DefaultStatus
		if override, ok := s.opts.Statuses[key]; ok {
			status = override
		}

		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, map[string]any{"route": key, "params": mux.Vars(r)})
	}
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("mock route not found", "method", r.Method, "path", r.URL.Path)
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
