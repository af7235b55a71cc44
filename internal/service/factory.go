// File: internal/service/factory.go

// Package service assembles the full component graph for a run: cookie
// store, proxy forwarder, browser, session manager, action executor, LLM
// client, and the orchestrator over them.
package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/actions"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser"
	"github.com/xkilldash9x/sockpuppet-cli/internal/commentgen"
	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
	"github.com/xkilldash9x/sockpuppet-cli/internal/cookies"
	"github.com/xkilldash9x/sockpuppet-cli/internal/llmclient"
	"github.com/xkilldash9x/sockpuppet-cli/internal/netproxy"
	"github.com/xkilldash9x/sockpuppet-cli/internal/orchestrator"
	"github.com/xkilldash9x/sockpuppet-cli/internal/session"
)

// ComponentFactory creates the set of components a command needs. The
// abstraction keeps the command layer testable without a browser.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation.
type concreteFactory struct {
	// newSession is swapped out in tests; everything downstream of the
	// browser only sees the Driver interface.
	newSession func(ctx context.Context, cfg *config.Config, logger *zap.Logger, proxyAddr string) (browser.Driver, error)
	newLLM     func(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error)
}

// NewComponentFactory creates a production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{
		newSession: func(ctx context.Context, cfg *config.Config, logger *zap.Logger, proxyAddr string) (browser.Driver, error) {
			return browser.NewSession(ctx, cfg, logger, proxyAddr)
		},
		newLLM: llmclient.NewClient,
	}
}

// Create handles the full dependency injection for a run. On any failure the
// partially built graph is torn down before the error is returned.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	var initErr error
	defer func() {
		if initErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initErr))
			components.Shutdown()
		}
	}()

	// 1. Cookie store.
	switch cfg.Store.Backend {
	case "file":
		store, err := cookies.NewFileStore(cfg.Store.Dir, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize file cookie store: %w", err)
			return nil, initErr
		}
		components.Store = store

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DSN)
		if err != nil {
			initErr = fmt.Errorf("failed to create database connection pool: %w", err)
			return nil, initErr
		}
		components.DBPool = pool

		store, err := cookies.NewPostgresStore(ctx, pool, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize postgres cookie store: %w", err)
			return nil, initErr
		}
		components.Store = store

	default:
		initErr = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
		return nil, initErr
	}
	logger.Debug("Cookie store initialized.", zap.String("backend", cfg.Store.Backend))

	// 2. Proxy forwarder. Chrome cannot authenticate to an upstream proxy
	// itself, so a local forwarder injects the credentials.
	var proxyAddr string
	if cfg.Network.Proxy.Enabled {
		forwarder, err := netproxy.NewForwarder(cfg.Network.Proxy, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to create proxy forwarder: %w", err)
			return nil, initErr
		}
		if err := forwarder.Start(ctx); err != nil {
			initErr = fmt.Errorf("failed to start proxy forwarder: %w", err)
			return nil, initErr
		}
		components.Forwarder = forwarder
		proxyAddr = forwarder.Addr()
		logger.Debug("Proxy forwarder listening.", zap.String("addr", proxyAddr))
	}

	// 3. Browser session.
	driver, err := f.newSession(ctx, cfg, logger, proxyAddr)
	if err != nil {
		initErr = fmt.Errorf("failed to launch browser session: %w", err)
		return nil, initErr
	}
	components.Browser = driver
	logger.Debug("Browser session launched.")

	// 4. Session manager. Owns the driver from here on.
	components.Manager = session.NewManager(cfg, driver, components.Store, logger)

	// 5. LLM client and comment generator.
	llm, err := f.newLLM(ctx, cfg.LLM, logger)
	if err != nil {
		initErr = fmt.Errorf("failed to initialize LLM client: %w", err)
		return nil, initErr
	}
	components.LLM = llm
	components.Generator = commentgen.New(llm, cfg.LLM.Temperature, logger)
	logger.Debug("Comment generator initialized.", zap.String("provider", string(cfg.LLM.Provider)))

	// 6. Action executor.
	resolver := actions.NewResolver(driver, cfg, logger)
	components.Executor = actions.NewExecutor(driver, resolver, cfg, logger)

	// 7. Orchestrator.
	components.Orchestrator = orchestrator.New(components.Manager, components.Executor, components.Generator, logger)

	logger.Info("All components initialized successfully.")
	return components, nil
}
