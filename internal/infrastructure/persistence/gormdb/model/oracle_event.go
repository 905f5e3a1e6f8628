package model

type OracleEvent struct {
	Seq          uint64 `gorm:"column:seq;primaryKey;autoIncrement"`
	EventKey     string `gorm:"column:event_key;type:text;not null;uniqueIndex"`
	Kind         string `gorm:"column:kind;type:text;not null;index"`
	EntityID     string `gorm:"column:entity_id;type:text;not null;index"`
	RequestID    string `gorm:"column:request_id;type:text;not null;index"`
	BlockNumber  uint64 `gorm:"column:block_number;not null;default:0"`
	LogIndex     uint   `gorm:"column:log_index;not null;default:0"`
	TxHash       string `gorm:"column:tx_hash;type:text;not null"`
	OldValuation string `gorm:"column:old_valuation;type:text;not null"`
	NewValuation string `gorm:"column:new_valuation;type:text;not null"`
	ErrorMessage string `gorm:"column:error_message;type:text;not null"`
	ObservedAt   string `gorm:"column:observed_at;type:text;not null"`
	IngestedAt   string `gorm:"column:ingested_at;type:text;not null;index"`
}

func (OracleEvent) TableName() string {
	return "oracle_events"
}
