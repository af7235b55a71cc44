// File: internal/service/components.go
package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
	"github.com/xkilldash9x/sockpuppet-cli/internal/actions"
	"github.com/xkilldash9x/sockpuppet-cli/internal/browser"
	"github.com/xkilldash9x/sockpuppet-cli/internal/netproxy"
	"github.com/xkilldash9x/sockpuppet-cli/internal/observability"
	"github.com/xkilldash9x/sockpuppet-cli/internal/orchestrator"
	"github.com/xkilldash9x/sockpuppet-cli/internal/session"
)

// Components holds every initialized collaborator a run needs. The struct
// centralizes lifecycle management: whatever Create managed to build,
// Shutdown releases, in dependency order.
type Components struct {
	Store        schemas.CookieStore
	Forwarder    *netproxy.Forwarder
	Browser      browser.Driver
	Manager      *session.Manager
	Executor     *actions.Executor
	LLM          schemas.LLMClient
	Generator    schemas.CommentGenerator
	Orchestrator *orchestrator.Orchestrator

	// DBPool is only set for the postgres cookie backend.
	DBPool *pgxpool.Pool
}

// Shutdown releases all components. Safe on a partially initialized struct.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	// A detached context so teardown completes even when the run's context
	// was already canceled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The session manager owns the browser; closing it tears the browser
	// down. Only reach for the driver directly when initialization failed
	// between the two.
	switch {
	case c.Manager != nil:
		if err := c.Manager.Close(ctx); err != nil {
			logger.Warn("Error closing session.", zap.Error(err))
		}
	case c.Browser != nil:
		if err := c.Browser.Close(ctx); err != nil {
			logger.Warn("Error closing browser.", zap.Error(err))
		}
	}

	// The LLM client and the proxy forwarder are independent of each other.
	var group errgroup.Group
	if c.LLM != nil {
		group.Go(c.LLM.Close)
	}
	if c.Forwarder != nil {
		group.Go(func() error { return c.Forwarder.Stop(ctx) })
	}
	if err := group.Wait(); err != nil {
		logger.Warn("Error during component teardown.", zap.Error(err))
	}

	if c.DBPool != nil {
		c.DBPool.Close()
		logger.Debug("Database connection pool closed.")
	}

	logger.Info("All components shut down.")
}
