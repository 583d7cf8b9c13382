package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/rolecall/internal/transport"
)

// getActorID extracts the actor ID from context.
func getActorID(ctx context.Context) string {
	actorID, _ := transport.ActorFromContext(ctx)
	return actorID
}

// ActorResolver resolves an actor ID from a bearer token.
type ActorResolver = transport.ActorResolver

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver ActorResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", transport.ErrUnauthorized)
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", transport.ErrUnauthorized)
			}

			actorID, err := resolver.ResolveActor(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", transport.ErrUnauthorized, err)
			}
			if actorID == "" {
				return nil, fmt.Errorf("%w: invalid bearer token", transport.ErrUnauthorized)
			}

			ctx = transport.WithActor(ctx, actorID)
			return next(ctx, method, req)
		}
	}
}

// declaredActorMiddleware trusts the actor the caller names, from the
// X-Actor-Id header (HTTP) or _meta.actor_id (stdio).
func declaredActorMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var actorID string

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				actorID = extra.Header.Get(transport.ActorHeader)
			}
			if actorID == "" {
				actorID = metaString(req, "actor_id")
			}

			if actorID != "" {
				ctx = transport.WithActor(ctx, actorID)
			}
			return next(ctx, method, req)
		}
	}
}

// metaString reads a string from the request's _meta. Some notifications
// carry nil params behind a non-nil interface, so GetMeta may panic.
func metaString(req sdkmcp.Request, key string) (value string) {
	params := req.GetParams()
	if params == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()
	if meta := params.GetMeta(); meta != nil {
		value, _ = meta[key].(string)
	}
	return value
}
