package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/transport"
)

// LedgerService defines ledger operations needed by MCP.
type LedgerService interface {
	CreateGrant(ctx context.Context, caller vesting.Account, req vesting.CreateGrantRequest) (*vesting.Grant, error)
	TotalsAt(ctx context.Context, account vesting.Account, t time.Time) (vesting.Totals, error)
	TotalsNow(ctx context.Context, account vesting.Account) (vesting.Totals, error)
	Grants(ctx context.Context, account vesting.Account) ([]vesting.Grant, error)
	ClaimAll(ctx context.Context, caller, account vesting.Account) (*vesting.Claimed, error)
	Pause(ctx context.Context, caller vesting.Account) (*vesting.Paused, error)
	Unpause(ctx context.Context, caller vesting.Account) (*vesting.Unpaused, error)
	RescueAll(ctx context.Context, caller vesting.Account) (*vesting.Rescued, error)
	State(ctx context.Context) (vesting.LedgerState, error)
}

// EventService defines event log operations needed by MCP.
type EventService interface {
	List(ctx context.Context, opts event.ListOptions) ([]event.Entry, error)
}

// ToolObserver records tool call outcomes.
type ToolObserver interface {
	ObserveTool(tool, outcome string, elapsed time.Duration)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Ledger LedgerService
	Events EventService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      transport.CallerResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// DefaultCaller is the account requests act as when auth is off.
	DefaultCaller vesting.Account
	Decimals      uint8
	Tools         ToolObserver
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tranche",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	// Added last so it runs first. Stdio mode always acts as the default
	// caller (local operator only).
	if cfg.TransportMode == "stdio" || !cfg.AuthEnabled {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DefaultCaller))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}

	registerTools(server, newToolset(cfg))

	return server
}
