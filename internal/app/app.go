// Package app assembles persistence, lifecycle services and transports from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"github.com/rpggio/rolecall/internal/config"
	"github.com/rpggio/rolecall/internal/domain/abandonment"
	"github.com/rpggio/rolecall/internal/domain/application"
	"github.com/rpggio/rolecall/internal/domain/collab"
	"github.com/rpggio/rolecall/internal/domain/completion"
	"github.com/rpggio/rolecall/internal/domain/event"
	"github.com/rpggio/rolecall/internal/domain/role"
	"github.com/rpggio/rolecall/internal/mcp"
	"github.com/rpggio/rolecall/internal/metrics"
	"github.com/rpggio/rolecall/internal/redisstore"
	"github.com/rpggio/rolecall/internal/repository"
	"github.com/rpggio/rolecall/internal/repository/memory"
	"github.com/rpggio/rolecall/internal/sqlite"
	"github.com/rpggio/rolecall/internal/transport"
	"github.com/rpggio/rolecall/internal/txn"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// SessionTimeout closes idle streamable HTTP sessions.
const SessionTimeout = 30 * time.Minute

// App is a fully wired rolecall instance.
type App struct {
	Config  config.Config
	DB      *sqlite.DB
	Store   repository.Store
	Keys    *sqlite.APIKeyRepository
	Events  *event.Service
	Metrics *metrics.Metrics
	Handler *mcp.Handler
	MCP     *sdkmcp.Server

	logger  *slog.Logger
	closers []func() error
}

// New wires an App over db, which must already be migrated. Documents go to
// the backend cfg.Store.Backend names; events and API keys always stay in db.
func New(ctx context.Context, cfg config.Config, db *sqlite.DB, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		Config: cfg,
		DB:     db,
		Keys:   sqlite.NewAPIKeyRepository(db),
		Events: event.NewService(sqlite.NewEventRepository(db), logger),
		logger: logger,
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	dispatchers := event.Fanout{a.Events, event.NewLogDispatcher(logger)}
	var coordOpts []txn.Option
	var observer mcp.CallObserver
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		dispatchers = append(dispatchers, a.Metrics)
		coordOpts = append(coordOpts, txn.WithObserver(a.Metrics))
		observer = a.Metrics
	}

	deps := collab.Deps{
		Runner: txn.New(store, cfg.Txn, logger, coordOpts...),
		Reader: store,
		Events: dispatchers,
		Logger: logger,
		Policy: cfg.Lifecycle.AcceptancePolicy,
	}

	a.Handler = mcp.NewHandler(mcp.Services{
		Collaborations: collab.NewService(deps),
		Roles:          role.NewRegistry(deps),
		Applications:   application.NewService(deps),
		Completions:    completion.NewService(deps),
		Abandonment:    abandonment.NewService(deps),
		Events:         a.Events,
	}, observer)

	a.MCP = mcp.NewServer(mcp.Config{
		Handler:       a.Handler,
		Resolver:      a.Keys,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       Version,
		Logger:        logger,
	})

	logger.Info("rolecall wired",
		"store", cfg.Store.Backend,
		"acceptance_policy", cfg.Lifecycle.AcceptancePolicy,
		"auth", cfg.Auth.Enabled,
		"metrics", cfg.Metrics.Enabled,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	switch a.Config.Store.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		store := redisstore.New(client, redisstore.WithPrefix(a.Config.Redis.Prefix))
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", a.Config.Redis.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		return store, nil
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite, "":
		return sqlite.NewDocumentStore(a.DB), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}
}

// HTTPHandler serves /rpc, /mcp, /health and, when enabled, /metrics.
func (a *App) HTTPHandler() http.Handler {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return a.MCP },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: SessionTimeout},
	)

	opts := transport.Options{MCP: mcpHandler, Logger: a.logger}
	if a.Config.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(a.Keys)
	}
	if a.Metrics != nil {
		opts.Metrics = a.Metrics.Handler()
	}
	return transport.NewServer(a.Handler, opts)
}

// RunStdio serves MCP over stdin/stdout until ctx ends or stdin closes.
func (a *App) RunStdio(ctx context.Context) error {
	return a.MCP.Run(ctx, &sdkmcp.StdioTransport{})
}

// Close releases connections opened by New. The SQLite database is the caller's.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
