package cmd

import (
	"context"
	"errors"
	"fmt"

	competitionapp "fitquest/application/competition"
	gamificationapp "fitquest/application/gamification"
	identityapp "fitquest/application/identity"
	notificationapp "fitquest/application/notification"
	"fitquest/config"
	"fitquest/domain/competition"
	"fitquest/domain/gamification"
	"fitquest/domain/identity"
	domainnotification "fitquest/domain/notification"
	"fitquest/domain/shared"
	"fitquest/infrastructure/auth"
	"fitquest/infrastructure/eventbus"
	"fitquest/infrastructure/locking"
	"fitquest/infrastructure/notification"
	"fitquest/infrastructure/observability"
	"fitquest/infrastructure/persistence/database"
	"fitquest/infrastructure/persistence/memory"
	"fitquest/pkg/logger"
	"fitquest/pkg/retry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// publisherSetter 两种工作单元工厂都在分发器构建后注入发布者
type publisherSetter interface {
	shared.UnitOfWorkFactory
	SetPublisher(p shared.EventPublisher)
}

// Container 进程内共享的组件
type Container struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	DB     *gorm.DB
	Outbox *database.OutboxRepository
	Redis  redis.UniversalClient

	Users    identity.Repository
	Profiles gamification.Repository
	Members  competition.Repository
	Ledger   competition.ProcessedEventLedger
	UoWs     shared.UnitOfWorkFactory

	Dispatcher *eventbus.Dispatcher
	Verifier   *auth.JWTVerifier

	IdentityService     *identityapp.ApplicationService
	GamificationService *gamificationapp.ApplicationService
	CompetitionService  *competitionapp.ApplicationService

	HealthCheckers map[string]shared.HealthChecker

	closers []func() error
}

// Build 按配置装配存储、锁、推送通道和分发器
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:         cfg,
		Registry:       prometheus.NewRegistry(),
		HealthCheckers: make(map[string]shared.HealthChecker),
	}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = observability.NewMetrics(c.Registry)

	if err := c.initRedis(ctx); err != nil {
		return nil, c.closeOnError(err)
	}
	uows, err := c.initPersistence()
	if err != nil {
		return nil, c.closeOnError(err)
	}
	c.UoWs = uows

	locker, err := c.newLocker()
	if err != nil {
		return nil, c.closeOnError(err)
	}

	dispatcher, err := c.buildDispatcher(locker)
	if err != nil {
		return nil, c.closeOnError(err)
	}
	c.Dispatcher = dispatcher
	uows.SetPublisher(dispatcher)

	c.Verifier = newVerifier(cfg)
	c.IdentityService = identityapp.NewApplicationService(c.Users, uows)
	c.GamificationService = gamificationapp.NewApplicationService(c.Profiles, uows, identityapp.NewPermissionChecker(c.Users))
	c.CompetitionService = competitionapp.NewApplicationService(c.Members, uows)

	logger.Info("Components assembled",
		zap.String("database", cfg.Database.Type),
		zap.String("lock_backend", cfg.League.LockBackend),
		zap.String("push_sender", cfg.Notification.Sender),
		zap.String("default_policy", cfg.Dispatch.DefaultPolicy))
	return c, nil
}

func (c *Container) initRedis(ctx context.Context) error {
	if c.Config.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis %s: %w", c.Config.Redis.Addr, err)
	}
	c.Redis = client
	c.HealthCheckers["redis"] = redisHealth{client}
	c.closers = append(c.closers, client.Close)
	logger.Info("Connected to Redis", zap.String("addr", c.Config.Redis.Addr))
	return nil
}

func (c *Container) initPersistence() (publisherSetter, error) {
	cfg := c.Config
	if cfg.Database.Type == "memory" {
		store := memory.NewStore()
		c.Users = memory.NewUserRepository(store)
		c.Profiles = memory.NewProfileRepository(store)
		c.Members = memory.NewMemberRepository(store)
		c.Ledger = memory.NewLedgerRepository(store)
		c.HealthCheckers["database"] = store
		logger.Info("Using in-memory persistence")
		return memory.NewUnitOfWorkFactory(store, nil).
			WithHooks(c.Metrics).
			WithRetry(retry.FromAppConfig(cfg.Database.Retry)), nil
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Database.Type, err)
	}
	c.DB = db
	c.closers = append(c.closers, func() error { return database.Close(db) })

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	c.Users = database.NewUserRepository(db)
	c.Profiles = database.NewProfileRepository(db)
	c.Members = database.NewMemberRepository(db)
	c.Ledger = database.NewLedgerRepository(db)
	c.Outbox = database.NewOutboxRepository(db)
	c.HealthCheckers["database"] = database.NewHealth(db)
	logger.Info("Connected to database", zap.String("type", cfg.Database.Type))

	return database.NewUnitOfWorkFactory(db, retry.FromAppConfig(cfg.Database.Retry), cfg.Worker.RedeliveryDelay).
		WithHooks(c.Metrics), nil
}

func (c *Container) newLocker() (shared.KeyLocker, error) {
	switch c.Config.League.LockBackend {
	case "redis":
		if c.Redis == nil {
			return nil, errors.New("league.lock_backend=redis requires redis.addr")
		}
		return locking.NewRedisLocker(c.Redis, locking.RedisLockerConfig{
			Prefix:      "fitquest:lock:",
			TTL:         c.Config.League.LockTTL,
			WaitTimeout: c.Config.League.LockWaitTimeout,
		}), nil
	default:
		return locking.NewKeyedMutex(), nil
	}
}

func (c *Container) newSender() (domainnotification.Sender, error) {
	switch c.Config.Notification.Sender {
	case "redis":
		if c.Redis == nil {
			return nil, errors.New("notification.sender=redis requires redis.addr")
		}
		return notification.NewRedisSender(c.Redis, c.Config.Notification.Channel), nil
	default:
		return notification.NewLoggingSender(), nil
	}
}

// buildDispatcher 注册所有跨模块处理器；没有处理器的事件也登记解码器，供 outbox 重放
func (c *Container) buildDispatcher(locker shared.KeyLocker) (*eventbus.Dispatcher, error) {
	sender, err := c.newSender()
	if err != nil {
		return nil, err
	}

	league := competitionapp.NewLeaguePointsHandler(c.Members, c.UoWs, locker,
		competitionapp.WithLedger(c.Ledger, c.Config.League.LedgerCacheSize),
		competitionapp.WithMaxConflictRetries(c.Config.League.MaxConflictRetries),
		competitionapp.WithMetrics(c.Metrics))
	push := notificationapp.NewPushHandlers(identityapp.NewDeviceDirectory(c.Users), sender)

	b := eventbus.NewBuilder().
		WithObserver(c.Metrics).
		WithLogger(logger.Named("eventbus")).
		WithDefaultPolicy(eventbus.ParsePolicy(c.Config.Dispatch.DefaultPolicy))

	eventbus.Subscribe[gamification.UserPointsEarned](b, league, eventbus.WithName(competitionapp.LeaguePointsConsumer))
	eventbus.Subscribe[gamification.StreakLost](b, eventbus.HandlerFunc[gamification.StreakLost](push.HandleStreakLost),
		eventbus.WithName("notification.streak_lost"))
	eventbus.Subscribe[identity.UserCreated](b, eventbus.HandlerFunc[identity.UserCreated](push.HandleUserCreated),
		eventbus.WithName("notification.welcome"))

	eventbus.Register[identity.HealthPermissionGranted](b)
	eventbus.Register[competition.MemberJoinedRoom](b)
	eventbus.Register[competition.LeaguePointsAwarded](b)

	return b.Build()
}

// Close 逆序释放资源
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) closeOnError(err error) error {
	if cerr := c.Close(); cerr != nil {
		logger.Warn("cleanup after failed build", zap.Error(cerr))
	}
	return err
}

func newVerifier(cfg *config.Config) *auth.JWTVerifier {
	return auth.NewJWTVerifier(cfg.Auth)
}

type redisHealth struct {
	client redis.UniversalClient
}

func (h redisHealth) CanConnect(ctx context.Context) bool {
	return h.client.Ping(ctx).Err() == nil
}
