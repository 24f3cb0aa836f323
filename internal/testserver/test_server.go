// Package testserver runs the full HTTP stack against an in-memory ledger.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/holiman/uint256"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tranche/internal/app"
	"github.com/rpggio/tranche/internal/config"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/sqlite"
	"github.com/stretchr/testify/require"
)

const (
	Owner   = vesting.Account("0x00000000000000000000000000000000000000a1")
	Rescuer = vesting.Account("0x00000000000000000000000000000000000000b2")
	Custody = vesting.Account("0x00000000000000000000000000000000000000c3")
)

// Start is the initial ledger time.
var Start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type TestServer struct {
	Server *httptest.Server
	App    *app.App
	Clock  *vesting.ManualClock
	// Tokens maps each role to a bearer token acting as it.
	Tokens map[vesting.Account]string
}

// New starts a server with auth enabled and api keys for the owner and
// rescuer.
func New(t *testing.T) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.DB.Path = ":memory:"
	cfg.Transport.Mode = "http"
	cfg.HTTP.RateLimit = 0
	cfg.Ledger.Owner = string(Owner)
	cfg.Ledger.Rescuer = string(Rescuer)
	cfg.Ledger.Custody = string(Custody)
	require.NoError(t, cfg.Validate())

	clock := vesting.NewManualClock(Start)
	a, err := app.Open(context.Background(), cfg, app.Options{Clock: clock})
	require.NoError(t, err)

	handler, err := a.HTTPHandler(a.MCPServer())
	require.NoError(t, err)
	server := httptest.NewServer(handler)

	ts := &TestServer{
		Server: server,
		App:    a,
		Clock:  clock,
		Tokens: map[vesting.Account]string{},
	}
	ts.AddAPIKey(t, Owner)
	ts.AddAPIKey(t, Rescuer)

	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return ts
}

// AddAPIKey issues a token acting as account.
func (ts *TestServer) AddAPIKey(t *testing.T, account vesting.Account) string {
	t.Helper()
	token := sqlite.GenerateToken()
	require.NoError(t, ts.App.APIKeys.Add(context.Background(), token, account, "test"))
	ts.Tokens[account] = token
	return token
}

// Fund deposits amount base units into custody.
func (ts *TestServer) Fund(t *testing.T, amount uint256.Int) {
	t.Helper()
	require.NoError(t, ts.App.Assets.Deposit(context.Background(), Custody, amount))
}

// Connect opens an MCP client session authenticated with token.
func (ts *TestServer) Connect(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: token, base: http.DefaultTransport}},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}
