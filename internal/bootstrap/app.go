package bootstrap

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"estateoracle/internal/bootstrap/config"
	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	"estateoracle/internal/infrastructure/metrics"
	"estateoracle/internal/infrastructure/persistence/gormdb/model"
	oracleuc "estateoracle/internal/usecase/oracle"
	propertyuc "estateoracle/internal/usecase/property"
)

// App is everything a command needs once the container has started.
type App struct {
	Config   config.Config
	DB       *gorm.DB
	Metrics  *metrics.Recorder
	Oracle   *oracleuc.Service
	Property *propertyuc.Service
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.app")
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	if err := recordStoreMeta(ctx, a.DB, a.Config.Chain.OracleAddress); err != nil {
		return err
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

// OracleSettings maps the oracle config section onto the service tunables.
func OracleSettings(cfg config.OracleConfig) oracleuc.Settings {
	return oracleuc.Settings{
		StalenessWindow: cfg.StalenessWindow,
		InFlightTimeout: cfg.InFlightTimeout,
		PollInterval:    cfg.PollInterval,
		EventBatch:      cfg.EventBatch,
		AutoUpdate:      cfg.AutoUpdate,
		WatchlistFile:   cfg.WatchlistFile,
	}
}
