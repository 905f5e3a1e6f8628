package config

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
)

// OracleWatcher re-reads the config file on change and publishes the oracle section.
// Other sections need a restart.
type OracleWatcher struct {
	v *viper.Viper

	mu        sync.RWMutex
	current   OracleConfig
	callbacks []func(OracleConfig)
	stopped   bool
}

// WatchOracle loads configFile and starts watching it. It returns a nil watcher
// and no error when no config file is in use.
func WatchOracle(ctx context.Context, configFile string) (Config, *OracleWatcher, error) {
	cfg, v, err := load(ctx, configFile)
	if err != nil {
		return Config{}, nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil, nil
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config.watch")
	w := newOracleWatcher(v, cfg.Oracle)
	v.OnConfigChange(func(e fsnotify.Event) {
		w.reload(logCtx, e)
	})
	v.WatchConfig()
	logging.Info(logCtx, "watching config file", slog.String("path", v.ConfigFileUsed()))
	return cfg, w, nil
}

func newOracleWatcher(v *viper.Viper, current OracleConfig) *OracleWatcher {
	return &OracleWatcher{v: v, current: current}
}

func (w *OracleWatcher) reload(ctx context.Context, e fsnotify.Event) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	cfg, err := decode(w.v)
	if err != nil {
		logging.Warn(ctx, "config reload rejected, keeping previous oracle settings",
			slog.String("path", e.Name),
			slog.Any("err", errs.Loggable(err)),
		)
		return
	}

	w.mu.Lock()
	if w.current == cfg.Oracle {
		w.mu.Unlock()
		return
	}
	w.current = cfg.Oracle
	callbacks := append(([]func(OracleConfig))(nil), w.callbacks...)
	w.mu.Unlock()

	logging.Info(ctx, "oracle settings reloaded",
		slog.Duration("staleness_window", cfg.Oracle.StalenessWindow),
		slog.Duration("poll_interval", cfg.Oracle.PollInterval),
		slog.Bool("auto_update", cfg.Oracle.AutoUpdate),
	)
	for _, callback := range callbacks {
		callback(cfg.Oracle)
	}
}

// OnChange registers callback for accepted reloads of the oracle section.
func (w *OracleWatcher) OnChange(callback func(OracleConfig)) {
	if w == nil || callback == nil {
		return
	}
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

func (w *OracleWatcher) Current() OracleConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop silences further reloads. viper offers no way to release the fsnotify watch.
func (w *OracleWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}
