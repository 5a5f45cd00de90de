// Package server initializes and runs the back-office application: it
// selects the backend, builds the navigation guard, and serves HTTP pages
// and gRPC health until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres"
	"github.com/dmitrijs2005/apotek/internal/backend/postgres/repositories/repomanager"
	"github.com/dmitrijs2005/apotek/internal/backend/supabase"
	"github.com/dmitrijs2005/apotek/internal/logging"
	"github.com/dmitrijs2005/apotek/internal/router"
	"github.com/dmitrijs2005/apotek/internal/server/config"

	gs "github.com/dmitrijs2005/apotek/internal/server/grpc"
	hs "github.com/dmitrijs2005/apotek/internal/server/http"
)

// SessionBackend is what the server needs from a backend.
type SessionBackend interface {
	backend.SessionReader
	backend.Authenticator
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	backend SessionBackend
	closer  func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout)

	b, closer, err := openBackend(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	return newApp(c, logger, b, closer), nil
}

func newApp(c *config.Config, l logging.Logger, b SessionBackend, closer func() error) *App {
	if closer == nil {
		closer = func() error { return nil }
	}
	return &App{config: c, logger: l, backend: b, closer: closer}
}

func openBackend(ctx context.Context, c *config.Config) (SessionBackend, func() error, error) {
	switch c.Backend {
	case config.BackendSupabase:
		cl, err := supabase.New(c.BackendURL, c.AnonKey, c.SessionCheckTimeout)
		if err != nil {
			return nil, nil, err
		}
		return cl, nil, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		b := postgres.New(db, repomanager.NewPostgresRepositoryManager(), c.SecretKey, c.TokenValidityDuration)
		if err := b.Migrate(ctx); err != nil {
			_ = b.Close()
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a shutdown signal arrives, or either
// server fails, then stops both and releases the backend.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.Backend)

	app.initSignalHandler(cancelFunc)

	metrics := hs.NewMetrics()
	guard := router.NewGuard(
		router.NewTable(router.AppRoutes()),
		app.backend,
		app.logger,
		router.WithTimeout(app.config.SessionCheckTimeout),
		router.WithRecorder(metrics),
	)

	httpServer := hs.NewServer(app.config.EndpointAddrHTTP, guard, app.backend, metrics, app.logger)
	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := grpcServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.closer(); err != nil {
		app.logger.Error(ctx, "backend close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
