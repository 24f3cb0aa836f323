package mcp

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/holiman/uint256"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
)

const maxEventLimit = 500

// maxDurationSeconds is the longest duration a time.Duration can hold.
const maxDurationSeconds = int64(math.MaxInt64 / time.Second)

type toolset struct {
	ledger   LedgerService
	events   EventService
	decimals uint8
	observer ToolObserver
	logger   *slog.Logger
}

func newToolset(cfg Config) *toolset {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	decimals := cfg.Decimals
	if decimals == 0 {
		decimals = vesting.DefaultDecimals
	}
	return &toolset{
		ledger:   cfg.Services.Ledger,
		events:   cfg.Services.Events,
		decimals: decimals,
		observer: cfg.Tools,
		logger:   logger,
	}
}

// addTool registers h under tool, timing each call and mapping domain
// errors to tool errors.
func addTool[In, Out any](server *sdkmcp.Server, ts *toolset, tool *sdkmcp.Tool, h func(context.Context, In) (Out, error)) {
	sdkmcp.AddTool(server, tool, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		start := time.Now()
		out, err := h(ctx, in)
		ts.observe(tool.Name, err, time.Since(start))
		if err != nil {
			var zero Out
			return nil, zero, mapError(err)
		}
		return nil, out, nil
	})
}

func (ts *toolset) observe(tool string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if apiErr := MapError(err); apiErr != nil {
			outcome = strings.ToLower(apiErr.Code)
		} else {
			ts.logger.Error("tool failed", "tool", tool, "error", err)
		}
	}
	if ts.observer != nil {
		ts.observer.ObserveTool(tool, outcome, elapsed)
	}
}

func registerTools(server *sdkmcp.Server, ts *toolset) {
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "create_grant",
		Description: "Create a vesting grant for a beneficiary. Owner only; rejected while paused. The grant must end at least the minimum horizon after now.",
	}, ts.createGrant)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "get_totals",
		Description: "Get an account's principal and bonus totals, unlocked amounts, claimed amounts and what a claim would pay now (or at a given time)",
	}, ts.getTotals)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "list_grants",
		Description: "List an account's grants in creation order",
	}, ts.listGrants)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "claim_all",
		Description: "Pay an account everything unlocked and not yet claimed. Owner only; rejected while paused.",
	}, ts.claimAll)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "pause",
		Description: "Pause grant creation and claims. Owner only.",
	}, ts.pause)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "unpause",
		Description: "Resume grant creation and claims. Owner only.",
	}, ts.unpause)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "rescue_all",
		Description: "Sweep the entire custody balance to the rescuer. Rescuer only; allowed while paused.",
	}, ts.rescueAll)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "get_ledger_state",
		Description: "Get the ledger roles, pause flag and custody balance",
	}, ts.getLedgerState)
	addTool(server, ts, &sdkmcp.Tool{
		Name:        "list_events",
		Description: "List ledger events oldest first, optionally filtered by account and type",
	}, ts.listEvents)
}

func (ts *toolset) parseAmount(s string, units bool) (uint256.Int, error) {
	if units {
		return vesting.ParseUnits(s, ts.decimals)
	}
	return vesting.ParseAmount(s)
}

func (ts *toolset) createGrant(ctx context.Context, in CreateGrantParams) (GrantView, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return GrantView{}, err
	}
	principal, err := ts.parseAmount(in.Principal, in.Units)
	if err != nil {
		return GrantView{}, err
	}
	bonus := uint256.Int{}
	if in.Bonus != "" {
		if bonus, err = ts.parseAmount(in.Bonus, in.Units); err != nil {
			return GrantView{}, err
		}
	}
	start, err := time.Parse(time.RFC3339, in.Start)
	if err != nil {
		return GrantView{}, invalidArgument("start must be RFC3339: %v", err)
	}
	if in.DurationSeconds > maxDurationSeconds {
		return GrantView{}, invalidArgument("duration_seconds must be at most %d", maxDurationSeconds)
	}

	g, err := ts.ledger.CreateGrant(ctx, caller, vesting.CreateGrantRequest{
		Beneficiary: vesting.ParseAccount(in.Beneficiary),
		Principal:   principal,
		Bonus:       bonus,
		Start:       start,
		Duration:    time.Duration(in.DurationSeconds) * time.Second,
	})
	if err != nil {
		return GrantView{}, err
	}
	return grantView(*g), nil
}

func (ts *toolset) getTotals(ctx context.Context, in GetTotalsParams) (TotalsView, error) {
	account := vesting.ParseAccount(in.Account)
	if in.At == "" {
		totals, err := ts.ledger.TotalsNow(ctx, account)
		if err != nil {
			return TotalsView{}, err
		}
		return totalsView(account, totals, ts.decimals), nil
	}

	at, err := time.Parse(time.RFC3339, in.At)
	if err != nil {
		return TotalsView{}, invalidArgument("at must be RFC3339: %v", err)
	}
	totals, err := ts.ledger.TotalsAt(ctx, account, at)
	if err != nil {
		return TotalsView{}, err
	}
	view := totalsView(account, totals, ts.decimals)
	view.At = formatTime(at)
	return view, nil
}

func (ts *toolset) listGrants(ctx context.Context, in AccountParams) (GrantsResult, error) {
	account := vesting.ParseAccount(in.Account)
	grants, err := ts.ledger.Grants(ctx, account)
	if err != nil {
		return GrantsResult{}, err
	}
	out := GrantsResult{Account: account.String(), Grants: make([]GrantView, 0, len(grants))}
	for _, g := range grants {
		out.Grants = append(out.Grants, grantView(g))
	}
	return out, nil
}

func (ts *toolset) claimAll(ctx context.Context, in AccountParams) (ClaimResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return ClaimResult{}, err
	}
	ev, err := ts.ledger.ClaimAll(ctx, caller, vesting.ParseAccount(in.Account))
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{
		Account:   ev.Account.String(),
		Principal: ev.Principal.Dec(),
		Bonus:     ev.Bonus.Dec(),
		Amount:    ev.Amount.Dec(),
		At:        formatTime(ev.At),
	}, nil
}

func (ts *toolset) pause(ctx context.Context, _ NoParams) (PauseResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return PauseResult{}, err
	}
	ev, err := ts.ledger.Pause(ctx, caller)
	if err != nil {
		return PauseResult{}, err
	}
	return PauseResult{Paused: true, By: ev.By.String(), At: formatTime(ev.At)}, nil
}

func (ts *toolset) unpause(ctx context.Context, _ NoParams) (PauseResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return PauseResult{}, err
	}
	ev, err := ts.ledger.Unpause(ctx, caller)
	if err != nil {
		return PauseResult{}, err
	}
	return PauseResult{Paused: false, By: ev.By.String(), At: formatTime(ev.At)}, nil
}

func (ts *toolset) rescueAll(ctx context.Context, _ NoParams) (RescueResult, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return RescueResult{}, err
	}
	ev, err := ts.ledger.RescueAll(ctx, caller)
	if err != nil {
		return RescueResult{}, err
	}
	return RescueResult{Rescuer: ev.Rescuer.String(), Amount: ev.Amount.Dec(), At: formatTime(ev.At)}, nil
}

func (ts *toolset) getLedgerState(ctx context.Context, _ NoParams) (LedgerStateResult, error) {
	state, err := ts.ledger.State(ctx)
	if err != nil {
		return LedgerStateResult{}, err
	}
	return LedgerStateResult{
		Owner:          state.Owner.String(),
		Rescuer:        state.Rescuer.String(),
		Custody:        state.Custody.String(),
		Paused:         state.Paused,
		CustodyBalance: state.CustodyBalance.Dec(),
	}, nil
}

func (ts *toolset) listEvents(ctx context.Context, in ListEventsParams) (EventsResult, error) {
	if in.Limit < 0 || in.Limit > maxEventLimit {
		return EventsResult{}, invalidArgument("limit must be between 0 and %d", maxEventLimit)
	}
	entries, err := ts.events.List(ctx, event.ListOptions{
		Account: vesting.ParseAccount(in.Account),
		Type:    vesting.EventType(in.Type),
		AfterID: in.AfterID,
		Limit:   in.Limit,
	})
	if err != nil {
		return EventsResult{}, err
	}
	out := EventsResult{Events: make([]EventView, 0, len(entries))}
	for _, e := range entries {
		out.Events = append(out.Events, eventView(e))
	}
	return out, nil
}
