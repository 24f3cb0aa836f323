package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterConfig describes the HTTP surface of the server.
type RouterConfig struct {
	// MCP serves the streamable MCP endpoint at /mcp.
	MCP http.Handler
	// Auth, when set, requires a bearer token on /mcp.
	Auth CallerResolver
	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	// CORSOrigins enables CORS for browser clients; empty disables it.
	CORSOrigins []string
	Limiter     *RateLimiter
	// Instrument wraps the whole router, e.g. with request metrics.
	Instrument func(http.Handler) http.Handler
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if cfg.MCP != nil {
		mcpHandler := cfg.MCP
		if cfg.Auth != nil {
			mcpHandler = AuthMiddleware(cfg.Auth)(mcpHandler)
		}
		r.PathPrefix("/mcp").Handler(mcpHandler)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.Metrics).Methods(http.MethodGet)
	}

	var h http.Handler = r
	if cfg.Limiter != nil {
		h = cfg.Limiter.Middleware(h)
	}
	if cfg.Instrument != nil {
		h = cfg.Instrument(h)
	}
	if len(cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
		}).Handler(h)
	}
	return h
}
