package model

import "time"

const TableKeyValue = "kv_store"

// Blob persisted under a key, backs the postgres storage
type KeyValue struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

func (KeyValue) TableName() string {
	return TableKeyValue
}
