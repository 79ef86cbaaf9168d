package domain

import "time"

// Counter is a per-month sequence row, e.g. key "ORD-2602". Rows are only
// ever created or atomically incremented; the value never moves backwards and
// sequences are never reused across restarts.
type Counter struct {
	CounterKey string    `gorm:"primaryKey;column:counter_key;type:text"`
	Value      int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Counter) TableName() string { return "order_number_counters" }
