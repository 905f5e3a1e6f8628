package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"estateoracle/internal/bootstrap/config"
	"estateoracle/internal/bootstrap/database"
	"estateoracle/internal/bootstrap/logging"
	cacheinfra "estateoracle/internal/infrastructure/cache"
	"estateoracle/internal/infrastructure/chain/ethereum"
	"estateoracle/internal/infrastructure/metrics"
	"estateoracle/internal/infrastructure/notify"
	gormrepo "estateoracle/internal/infrastructure/persistence/gormdb/repository"
	gormuow "estateoracle/internal/infrastructure/persistence/gormdb/uow"
	"estateoracle/internal/ports"
	oracleuc "estateoracle/internal/usecase/oracle"
	propertyuc "estateoracle/internal/usecase/property"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(
		fx.Annotate(
			gormrepo.NewOracleEventRepository,
			fx.As(new(ports.OracleEventRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			gormuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideChain),
	fx.Provide(provideNotifier),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(provideOracleService),
	fx.Provide(propertyuc.NewService),
	fx.Provide(provideApp),
	fx.Invoke(registerStoreBindingCheck),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithComponent(p.Ctx, "bootstrap.fx")
	cfg, err := config.Load(ctx, p.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func registerStoreBindingCheck(lc fx.Lifecycle, cfg config.Config, db *gorm.DB) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return checkStoreBinding(ctx, db, cfg.Chain.OracleAddress)
		},
	})
}

func provideCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Driver)) {
	case "", "gorm", "db":
		return cacheinfra.NewGormCache(db), nil
	case "redis":
		redisCache := cacheinfra.NewRedisCache(cacheinfra.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		lc.Append(fx.Hook{
			OnStart: func(startCtx context.Context) error {
				return redisCache.Ping(startCtx)
			},
			OnStop: func(_ context.Context) error {
				return redisCache.Close()
			},
		})
		logging.Info(logCtx, "using redis cache", slog.String("addr", cfg.Cache.Redis.Addr))
		return redisCache, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}

type chainAdapters struct {
	fx.Out

	Source   ports.EventSource
	Contract ports.OracleContract
	Registry ports.PropertyRegistry
}

// provideChain falls back to ethereum.Disabled when no RPC endpoint is configured,
// so local commands like status and events keep working offline.
func provideChain(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (chainAdapters, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	if !cfg.Chain.Enabled() {
		logging.Info(logCtx, "chain not configured, running offline")
		disabled := ethereum.Disabled{}
		return chainAdapters{Source: disabled, Contract: disabled, Registry: disabled}, nil
	}

	client, err := ethereum.Dial(ctx, cfg.Chain)
	if err != nil {
		return chainAdapters{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			client.Close()
			return nil
		},
	})

	return chainAdapters{
		Source:   ethereum.NewEventSource(client),
		Contract: ethereum.NewOracleContract(client),
		Registry: ethereum.NewPropertyRegistry(client),
	}, nil
}

func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Notifier, error) {
	if strings.TrimSpace(cfg.Notify.NATSURL) == "" {
		return notify.Nop{}, nil
	}

	notifier, err := notify.DialNATS(ctx, cfg.Notify.NATSURL, cfg.Notify.Subject, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return notifier.Close()
		},
	})
	return notifier, nil
}

type oracleParams struct {
	fx.In

	Config   config.Config
	Events   ports.OracleEventRepository
	UoW      ports.UnitOfWork
	Cache    ports.Cache
	Source   ports.EventSource
	Contract ports.OracleContract
	Registry ports.PropertyRegistry
	Notifier ports.Notifier
	Metrics  *metrics.Recorder
}

func provideOracleService(p oracleParams) *oracleuc.Service {
	return oracleuc.NewService(oracleuc.Deps{
		Events:   p.Events,
		UoW:      p.UoW,
		Cache:    p.Cache,
		Source:   p.Source,
		Contract: p.Contract,
		Registry: p.Registry,
		Notifier: p.Notifier,
		Metrics:  p.Metrics,
	}, OracleSettings(p.Config.Oracle))
}

type appParams struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Metrics  *metrics.Recorder
	Oracle   *oracleuc.Service
	Property *propertyuc.Service
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		DB:       p.DB,
		Metrics:  p.Metrics,
		Oracle:   p.Oracle,
		Property: p.Property,
	}
}
