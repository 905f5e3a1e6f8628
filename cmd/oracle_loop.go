package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"estateoracle/internal/bootstrap"
	"estateoracle/internal/bootstrap/config"
	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	oracleuc "estateoracle/internal/usecase/oracle"
)

var oracleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Poll oracle events and dispatch due valuation requests",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := cmd.Context()

		watchlistFile, _ := cmd.Flags().GetString("watchlist")
		once, _ := cmd.Flags().GetBool("once")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		eventBatch, _ := cmd.Flags().GetInt("event-batch")

		runOnce := func() error {
			result, err := app.Oracle.SyncOnce(ctx, oracleuc.SyncInput{
				WatchlistFile: watchlistFile,
				EventBatch:    eventBatch,
			})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"oracle sync cursor=%d->%d fetched=%d appended=%d candidates=%d triggered=%d skipped=%d failed=%d\n",
				result.CursorBefore,
				result.CursorAfter,
				result.Fetched,
				result.Appended,
				result.Candidates,
				result.Triggered,
				result.Skipped,
				result.Failed,
			); err != nil {
				return errs.Wrap(err, "write sync output")
			}
			return nil
		}

		if once {
			return runOnce()
		}

		stop, err := startLoopSupport(ctx, cmd, app)
		if err != nil {
			return err
		}
		defer stop()

		interval := loopInterval(app, pollInterval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := runOnce(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logging.Error(ctx, "oracle sync tick failed", slog.Any("err", errs.Loggable(err)))
			}
			select {
			case <-ctx.Done():
				logging.Info(ctx, "oracle sync loop stopped")
				return nil
			case <-ticker.C:
			}
			if next := loopInterval(app, pollInterval); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}),
}

var oracleWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to oracle events and dispatch due valuation requests",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := cmd.Context()

		watchlistFile, _ := cmd.Flags().GetString("watchlist")
		interval, _ := cmd.Flags().GetDuration("interval")

		stop, err := startLoopSupport(ctx, cmd, app)
		if err != nil {
			return err
		}
		defer stop()

		return app.Oracle.Watch(ctx, oracleuc.WatchInput{
			WatchlistFile: watchlistFile,
			Interval:      interval,
		})
	}),
}

// startLoopSupport starts what long-running loops need beside the container:
// hot reload of the oracle settings and the optional metrics endpoint.
func startLoopSupport(ctx context.Context, cmd *cobra.Command, app *bootstrap.App) (func(), error) {
	_, watcher, err := config.WatchOracle(ctx, cfgFile)
	if err != nil {
		return nil, errs.Wrap(err, "watch config")
	}
	watcher.OnChange(func(oracleCfg config.OracleConfig) {
		app.Oracle.ApplySettings(bootstrap.OracleSettings(oracleCfg))
	})

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr == "" {
		metricsAddr = app.Config.Metrics.ListenAddr
	}
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if metricsAddr == "" {
			return
		}
		if err := app.Metrics.Serve(serveCtx, metricsAddr); err != nil {
			logging.Error(ctx, "metrics endpoint failed", slog.Any("err", errs.Loggable(err)))
		}
	}()

	return func() {
		watcher.Stop()
		cancel()
		<-done
	}, nil
}

func loopInterval(app *bootstrap.App, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return app.Oracle.Settings().PollInterval
}

func init() {
	oracleCmd.AddCommand(oracleSyncCmd, oracleWatchCmd)

	for _, loopCmd := range []*cobra.Command{oracleSyncCmd, oracleWatchCmd} {
		loopCmd.Flags().String("watchlist", "", "Path to watchlist.toml; defaults to oracle.watchlist_file")
		loopCmd.Flags().String("metrics-addr", "", "Listen address for /metrics; defaults to metrics.listen_addr")
	}
	oracleSyncCmd.Flags().Bool("once", false, "Run one sync tick and exit")
	oracleSyncCmd.Flags().Duration("poll-interval", 0, "Polling interval; defaults to oracle.poll_interval")
	oracleSyncCmd.Flags().Int("event-batch", 0, "Max events fetched per tick; defaults to oracle.event_batch")
	oracleWatchCmd.Flags().Duration("interval", 0, "Watchlist evaluation interval; defaults to oracle.poll_interval")
}
