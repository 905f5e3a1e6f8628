package model

// All lists every table the schema migration owns.
func All() []any {
	return []any{
		&OracleEvent{},
		&CacheEntry{},
		&StoreMeta{},
	}
}
