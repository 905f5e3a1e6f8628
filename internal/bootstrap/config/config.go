package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
)

const EnvPrefix = "EO"

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres.
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type ChainConfig struct {
	RPCURL        string `mapstructure:"rpc_url"`
	WSURL         string `mapstructure:"ws_url"`
	OracleAddress string `mapstructure:"oracle_address"`
	TokenAddress  string `mapstructure:"token_address"`
	PrivateKey    string `mapstructure:"private_key"`
	// ChainID zero means ask the node.
	ChainID       int64  `mapstructure:"chain_id"`
	StartBlock    uint64 `mapstructure:"start_block"`
	Lookback      uint64 `mapstructure:"lookback"`
	MaxBlockSpan  uint64 `mapstructure:"max_block_span"`
	Confirmations uint64 `mapstructure:"confirmations"`

	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ReceiptTimeout    time.Duration `mapstructure:"receipt_timeout"`
	UseBlockTime      bool          `mapstructure:"use_block_time"`
}

// Enabled reports whether an RPC endpoint and oracle address are configured.
func (c ChainConfig) Enabled() bool {
	return strings.TrimSpace(c.RPCURL) != "" && strings.TrimSpace(c.OracleAddress) != ""
}

type OracleConfig struct {
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
	InFlightTimeout time.Duration `mapstructure:"inflight_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	EventBatch      int           `mapstructure:"event_batch"`
	AutoUpdate      bool          `mapstructure:"auto_update"`
	WatchlistFile   string        `mapstructure:"watchlist_file"`
}

type CacheConfig struct {
	// Driver is gorm (the configured database) or redis.
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load reads configFile (or configs/config.yaml when empty), overlays EO_* env vars
// and validates the result.
func Load(ctx context.Context, configFile string) (Config, error) {
	cfg, _, err := load(ctx, configFile)
	return cfg, err
}

func load(ctx context.Context, configFile string) (Config, *viper.Viper, error) {
	if ctx == nil {
		return Config{}, nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config")
	v := newViper(configFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, nil, errs.Wrap(err, "read config")
		}
		logging.Warn(logCtx, "config file not found, fallback to defaults and env")
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, nil, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.Bool("chain_enabled", cfg.Chain.Enabled()),
	)
	return cfg, v, nil
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Cache.Driver = strings.ToLower(strings.TrimSpace(cfg.Cache.Driver))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Oracle.WatchlistFile = strings.TrimSpace(cfg.Oracle.WatchlistFile)
}

func (c Config) Validate() error {
	var problems []error

	if strings.TrimSpace(c.Database.DSN) == "" {
		problems = append(problems, errors.New("database.dsn is required"))
	}
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		problems = append(problems, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	switch c.Cache.Driver {
	case "gorm", "db":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			problems = append(problems, errors.New("cache.redis.addr is required for the redis cache"))
		}
	default:
		problems = append(problems, fmt.Errorf("cache.driver %q is not supported", c.Cache.Driver))
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}

	if err := c.Oracle.Validate(); err != nil {
		problems = append(problems, err)
	}
	if c.Chain.RequestsPerSecond < 0 {
		problems = append(problems, errors.New("chain.requests_per_second must not be negative"))
	}
	return errors.Join(problems...)
}

func (o OracleConfig) Validate() error {
	var problems []error
	if o.StalenessWindow <= 0 {
		problems = append(problems, errors.New("oracle.staleness_window must be positive"))
	}
	if o.InFlightTimeout <= 0 {
		problems = append(problems, errors.New("oracle.inflight_timeout must be positive"))
	}
	if o.PollInterval <= 0 {
		problems = append(problems, errors.New("oracle.poll_interval must be positive"))
	}
	if o.EventBatch <= 0 {
		problems = append(problems, errors.New("oracle.event_batch must be positive"))
	}
	return errors.Join(problems...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "estateoracle")
	v.SetDefault("app.env", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".estateoracle/state.sqlite")
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")

	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.ws_url", "")
	v.SetDefault("chain.oracle_address", "")
	v.SetDefault("chain.token_address", "")
	v.SetDefault("chain.private_key", "")
	v.SetDefault("chain.chain_id", 0)
	v.SetDefault("chain.start_block", 0)
	v.SetDefault("chain.lookback", 1000)
	v.SetDefault("chain.max_block_span", 2000)
	v.SetDefault("chain.confirmations", 0)
	v.SetDefault("chain.requests_per_second", 5)
	v.SetDefault("chain.burst", 5)
	v.SetDefault("chain.receipt_timeout", "2m")
	v.SetDefault("chain.use_block_time", true)

	v.SetDefault("oracle.staleness_window", "24h")
	v.SetDefault("oracle.inflight_timeout", "15m")
	v.SetDefault("oracle.poll_interval", "30s")
	v.SetDefault("oracle.event_batch", 2000)
	v.SetDefault("oracle.auto_update", true)
	v.SetDefault("oracle.watchlist_file", "watchlist.toml")

	v.SetDefault("cache.driver", "gorm")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "estateoracle:")

	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.subject", "estateoracle.oracle")

	v.SetDefault("metrics.listen_addr", "")
}
