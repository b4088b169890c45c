package cmd

import (
	"context"
	"errors"
	"net/http"

	"fitquest/api"
	apicompetition "fitquest/api/competition"
	apigamification "fitquest/api/gamification"
	"fitquest/api/health"
	apiidentity "fitquest/api/identity"
	"fitquest/infrastructure/persistence/database"
	"fitquest/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App HTTP 服务，数据库模式下同时运行 outbox 重投递
type App struct {
	container *Container
	router    *api.Router
	server    *http.Server
	worker    *database.OutboxWorker
}

func NewApp(c *Container, withWorker bool) (*App, error) {
	cfg := c.Config
	router := api.NewRouter(cfg, api.Controllers{
		Health:       health.NewController(cfg, c.HealthCheckers),
		Identity:     apiidentity.NewController(c.IdentityService),
		Gamification: apigamification.NewController(c.GamificationService),
		Competition:  apicompetition.NewController(c.CompetitionService),
	}, c.Verifier, c.Registry)
	router.SetupRoutes()

	app := &App{
		container: c,
		router:    router,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router.GetEngine(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	if withWorker && c.Outbox != nil {
		worker, err := newOutboxWorker(c)
		if err != nil {
			return nil, err
		}
		app.worker = worker
	}
	return app, nil
}

func newOutboxWorker(c *Container) (*database.OutboxWorker, error) {
	worker, err := database.NewOutboxWorker(c.Outbox, c.Dispatcher, c.Config.Worker)
	if err != nil {
		return nil, err
	}
	return worker.WithObserver(c.Metrics), nil
}

// Run 阻塞到 ctx 取消，然后在 ShutdownTimeout 内优雅关闭
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.container.Config.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		return a.server.Shutdown(shutdownCtx)
	})

	if a.worker != nil {
		g.Go(func() error {
			if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	logger.Info("Server stopped")
	return err
}
