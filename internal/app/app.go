// Package app assembles the ledger from configuration: storage, services,
// the MCP server and the HTTP handler tree.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rpggio/tranche/internal/config"
	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/mcp"
	"github.com/rpggio/tranche/internal/metrics"
	"github.com/rpggio/tranche/internal/sqlite"
	"github.com/rpggio/tranche/internal/transport"
)

// Options overrides parts of the assembly, mostly for tests.
type Options struct {
	Logger *slog.Logger
	Clock  vesting.Clock
	// Registry receives metrics; a fresh registry is created when nil.
	Registry *prometheus.Registry
}

// App is an opened ledger.
type App struct {
	Config   config.Config
	DB       *sqlite.DB
	Ledger   *vesting.Service
	Events   *event.Service
	Assets   *sqlite.AssetStore
	APIKeys  *sqlite.APIKeyRepository
	Metrics  *metrics.Ledger
	Registry *prometheus.Registry

	logger *slog.Logger
}

// Open opens the database, applies migrations and bootstraps the ledger
// roles.
func Open(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		Assets:   sqlite.NewAssetStore(db),
		APIKeys:  sqlite.NewAPIKeyRepository(db),
		Events:   event.NewService(sqlite.NewEventRepository(db), logger),
		Registry: opts.Registry,
		logger:   logger,
	}

	var observer vesting.Observer
	if cfg.Metrics.Enabled {
		if a.Registry == nil {
			a.Registry = prometheus.NewRegistry()
			a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		if a.Metrics, err = metrics.NewLedger(a.Registry); err != nil {
			db.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		observer = a.Metrics
	}

	policy := cfg.Ledger.Policy()
	a.Ledger, err = vesting.NewService(vesting.Config{
		Roles:    cfg.Ledger.Roles(),
		Policy:   &policy,
		Grants:   sqlite.NewGrantRepository(db),
		Accounts: sqlite.NewAccountRepository(db),
		State:    sqlite.NewStateRepository(db),
		Assets:   a.Assets,
		Tx:       db,
		Events:   a.Events,
		Observer: observer,
		Clock:    opts.Clock,
		Logger:   logger,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build ledger: %w", err)
	}
	if err := a.Ledger.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap ledger: %w", err)
	}

	if a.Metrics != nil {
		paused, err := a.Ledger.Paused(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("read pause state: %w", err)
		}
		a.Metrics.SetPaused(paused)
	}
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// MCPServer builds the MCP server for the configured transport.
func (a *App) MCPServer() *sdkmcp.Server {
	cfg := mcp.Config{
		Services: mcp.Services{
			Ledger: a.Ledger,
			Events: a.Events,
		},
		Resolver:      a.APIKeys,
		AuthEnabled:   a.Config.Auth.Enabled,
		TransportMode: a.Config.Transport.Mode,
		DefaultCaller: a.Ledger.Roles().Owner,
		Decimals:      a.Config.Ledger.Decimals,
		Logger:        a.logger,
	}
	if a.Metrics != nil {
		cfg.Tools = a.Metrics
	}
	return mcp.NewServer(cfg)
}

// HTTPHandler serves the streamable MCP endpoint alongside /health and,
// when enabled, metrics.
func (a *App) HTTPHandler(server *sdkmcp.Server) (http.Handler, error) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: a.Config.Transport.SessionTimeout,
		},
	)

	rc := transport.RouterConfig{
		MCP:         mcpHandler,
		CORSOrigins: a.Config.HTTP.CORSOrigins,
	}
	if a.Config.Auth.Enabled {
		rc.Auth = a.APIKeys
	}
	if a.Config.HTTP.RateLimit > 0 {
		rc.Limiter = transport.NewRateLimiter(a.Config.HTTP.RateLimit, a.Config.HTTP.RateBurst)
		rc.Limiter.TrustForwarded = a.Config.HTTP.TrustProxy
	}
	if a.Registry != nil {
		httpMetrics, err := metrics.NewHTTP(a.Registry)
		if err != nil {
			return nil, fmt.Errorf("register http metrics: %w", err)
		}
		rc.Instrument = httpMetrics.Wrap
		rc.Metrics = metrics.Handler(a.Registry)
		rc.MetricsPath = a.Config.Metrics.Path
	}
	return transport.NewRouter(rc), nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") || filepath.Dir(path) == "." {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
