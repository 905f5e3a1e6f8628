package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	"estateoracle/internal/infrastructure/persistence/gormdb/model"
)

const (
	SchemaVersion = "1"

	metaSchemaVersion = "schema_version"
	metaOracleAddress = "oracle_address"
)

// ErrStoreBoundElsewhere means the local event log mirrors a different oracle
// contract than the one configured.
var ErrStoreBoundElsewhere = errors.New("local store belongs to another oracle contract")

func recordStoreMeta(ctx context.Context, db *gorm.DB, oracleAddress string) error {
	tx := db.WithContext(ctx)

	version := model.StoreMeta{Key: metaSchemaVersion, Value: SchemaVersion}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&version).Error; err != nil {
		return errs.Wrap(err, "store schema version")
	}

	address := normalizeAddress(oracleAddress)
	if address == "" {
		return nil
	}
	binding := model.StoreMeta{Key: metaOracleAddress, Value: address}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&binding).Error; err != nil {
		return errs.Wrap(err, "bind store to oracle address")
	}
	return checkStoreBinding(ctx, db, oracleAddress)
}

// Stores without the meta table or without a binding pass.
func checkStoreBinding(ctx context.Context, db *gorm.DB, oracleAddress string) error {
	configured := normalizeAddress(oracleAddress)
	if configured == "" {
		return nil
	}
	tx := db.WithContext(ctx)
	if !tx.Migrator().HasTable(&model.StoreMeta{}) {
		return nil
	}

	var row model.StoreMeta
	if err := tx.Where("key = ?", metaOracleAddress).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errs.Wrap(err, "read store binding")
	}
	if row.Value != configured {
		return fmt.Errorf("%w: store has %s, config has %s", ErrStoreBoundElsewhere, row.Value, configured)
	}

	logging.Debug(logging.WithComponent(ctx, "bootstrap.store"), "store binding verified",
		slog.String("oracle_address", configured),
	)
	return nil
}

func normalizeAddress(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
