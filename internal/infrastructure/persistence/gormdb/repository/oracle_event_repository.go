package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
	"estateoracle/internal/infrastructure/persistence/gormdb/model"
	"estateoracle/internal/ports"
)

const timeLayout = time.RFC3339Nano

type OracleEventRepository struct {
	db *gorm.DB
}

var _ ports.OracleEventRepository = (*OracleEventRepository)(nil)

func NewOracleEventRepository(db *gorm.DB) *OracleEventRepository {
	return &OracleEventRepository{db: db}
}

func (r *OracleEventRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *OracleEventRepository) AppendEvent(ctx context.Context, record ports.OracleEventRecord) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	key := strings.TrimSpace(record.EventKey)
	if key == "" {
		return false, errors.New("event key is required")
	}

	ingestedAt := record.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}

	row := model.OracleEvent{
		EventKey:     key,
		Kind:         record.Kind,
		EntityID:     record.EntityID,
		RequestID:    strings.ToLower(strings.TrimSpace(record.RequestID)),
		BlockNumber:  record.BlockNumber,
		LogIndex:     record.LogIndex,
		TxHash:       record.TxHash,
		OldValuation: record.OldValuation,
		NewValuation: record.NewValuation,
		ErrorMessage: record.ErrorMessage,
		ObservedAt:   record.ObservedAt.UTC().Format(timeLayout),
		IngestedAt:   ingestedAt.UTC().Format(timeLayout),
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_key"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert oracle event")
	}
	return result.RowsAffected > 0, nil
}

func (r *OracleEventRepository) ListEntityEvents(ctx context.Context, entityID string) ([]ports.OracleEventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entity := strings.TrimSpace(entityID)
	if entity == "" {
		return nil, nil
	}

	requestIDs := db.Model(&model.OracleEvent{}).
		Select("request_id").
		Where("kind = ? AND entity_id = ? AND request_id <> ''", string(oracle.KindValuationRequested), entity)

	var rows []model.OracleEvent
	if err := db.Model(&model.OracleEvent{}).
		Where("entity_id = ?", entity).
		Or("kind = ? AND entity_id = '' AND request_id IN (?)", string(oracle.KindRequestFailed), requestIDs).
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query property oracle events")
	}
	return mapEvents(rows), nil
}

func (r *OracleEventRepository) ListRecentEvents(ctx context.Context, filter ports.OracleEventFilter) ([]ports.OracleEventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.OracleEvent{})
	if entity := strings.TrimSpace(filter.EntityID); entity != "" {
		query = query.Where("entity_id = ?", entity)
	}
	if requestID := strings.ToLower(strings.TrimSpace(filter.RequestID)); requestID != "" {
		query = query.Where("request_id = ?", requestID)
	}
	query = query.Order("seq desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.OracleEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query recent oracle events")
	}
	return mapEvents(rows), nil
}

func mapEvents(rows []model.OracleEvent) []ports.OracleEventRecord {
	items := make([]ports.OracleEventRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OracleEventRecord{
			Seq:          row.Seq,
			EventKey:     row.EventKey,
			Kind:         row.Kind,
			EntityID:     row.EntityID,
			RequestID:    row.RequestID,
			BlockNumber:  row.BlockNumber,
			LogIndex:     row.LogIndex,
			TxHash:       row.TxHash,
			OldValuation: row.OldValuation,
			NewValuation: row.NewValuation,
			ErrorMessage: row.ErrorMessage,
			ObservedAt:   parseTime(row.ObservedAt),
			IngestedAt:   parseTime(row.IngestedAt),
		})
	}
	return items
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
