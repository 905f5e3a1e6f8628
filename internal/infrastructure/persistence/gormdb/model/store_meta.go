package model

import "time"

// StoreMeta records facts about the local store itself, such as the schema
// version and the oracle contract its event log mirrors.
type StoreMeta struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string    `gorm:"column:key;type:text;uniqueIndex;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (StoreMeta) TableName() string {
	return "store_meta"
}
