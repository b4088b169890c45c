package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitquest/config"
	"fitquest/infrastructure/persistence/database"
	"fitquest/pkg/logger"
	"fitquest/pkg/tracing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fitquest",
		Short:         "Fitness gamification backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(newServeCommand(), newWorkerCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

// Execute main 的入口
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fitquest: %v\n", err)
		os.Exit(1)
	}
}

// setup 加载配置并初始化日志和追踪
func setup(ctx context.Context) (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	logger.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env))

	cleanup := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return cfg, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newServeCommand() *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			app, err := NewApp(c, withWorker)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "run the outbox redelivery worker in-process (database mode only)")
	return cmd
}

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Redeliver committed events whose in-process dispatch failed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if c.Outbox == nil {
				return errors.New("outbox worker requires a SQL database (database.type is memory)")
			}
			worker, err := newOutboxWorker(c)
			if err != nil {
				return err
			}
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("outbox worker exited with error: %w", err)
			}
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.Database.Type == "memory" {
				return errors.New("nothing to migrate for database.type=memory")
			}
			db, err := database.Connect(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("Migration completed", zap.String("type", cfg.Database.Type))
			return nil
		},
	}
}

// newTokenCommand 本地调试用，按配置的密钥签发令牌
func newTokenCommand() *cobra.Command {
	var email, name string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if cfg.IsProduction() {
				return errors.New("token issuing is disabled in production")
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			verifier := newVerifier(cfg)
			token, err := verifier.IssueToken(args[0], email, name, cfg.Auth.Issuer, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
