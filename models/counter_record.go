package models

import (
	"time"

	"github.com/amirphl/counter-clean-arch/utils"
)

// CounterRecord is the persisted row of a counter
type CounterRecord struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for CounterRecord
func (CounterRecord) TableName() string { return "counters" }

// NewCounterRecord maps an entity to its row; zero timestamps become now
func NewCounterRecord(c Counter) CounterRecord {
	return CounterRecord{
		ID:        c.ID(),
		Value:     c.Value(),
		CreatedAt: utils.OrUTCNow(c.CreatedAt()),
		UpdatedAt: utils.OrUTCNow(c.UpdatedAt()),
	}
}

// ToEntity maps the row back to a Counter
func (r CounterRecord) ToEntity() Counter {
	createdAt := r.CreatedAt.UTC()
	updatedAt := r.UpdatedAt.UTC()
	return NewCounter(CounterProps{
		ID:        r.ID,
		Value:     r.Value,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	})
}
