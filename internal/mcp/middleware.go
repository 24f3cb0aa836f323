package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/transport"
)

// callerFrom returns the account the current request acts as.
func callerFrom(ctx context.Context) (vesting.Account, error) {
	caller, ok := transport.CallerFromContext(ctx)
	if !ok || caller.IsNull() {
		return "", transport.ErrUnauthorized
	}
	return caller, nil
}

// authMiddleware resolves the caller from the request's bearer token.
func authMiddleware(resolver transport.CallerResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			// Already resolved by the HTTP layer
			if caller, ok := transport.CallerFromContext(ctx); ok && !caller.IsNull() {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", transport.ErrUnauthorized)
			}

			token := transport.BearerToken(extra.Header.Get("Authorization"))
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", transport.ErrUnauthorized)
			}

			caller, err := resolver.ResolveCaller(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", transport.ErrUnauthorized, err)
			}
			if caller.IsNull() {
				return nil, fmt.Errorf("%w: invalid bearer token", transport.ErrUnauthorized)
			}

			return next(transport.WithCaller(ctx, caller), method, req)
		}
	}
}

// noAuthMiddleware acts as a fixed account when auth is disabled.
func noAuthMiddleware(caller vesting.Account) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(transport.WithCaller(ctx, caller), method, req)
		}
	}
}
