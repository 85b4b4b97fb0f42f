package models

import (
	"fmt"
	"math"
	"time"
)

// DefaultCounterID is the well-known identity used when a caller names no counter
const DefaultCounterID = "default"

// CounterProps holds the fields needed to construct a Counter
type CounterProps struct {
	ID        string
	Value     int64
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// Counter is an immutable counter value. Every transform returns a new Counter
// with the same id and createdAt and a fresh updatedAt.
type Counter struct {
	BaseEntity
	value int64
}

// NewCounter creates a Counter; nil timestamps default to now
func NewCounter(props CounterProps) Counter {
	return Counter{
		BaseEntity: NewBaseEntity(props.ID, props.CreatedAt, props.UpdatedAt),
		value:      props.Value,
	}
}

// NewDefaultCounter synthesizes the zero-valued default counter
func NewDefaultCounter() Counter {
	return NewCounter(CounterProps{ID: DefaultCounterID})
}

func (c Counter) Value() int64 { return c.value }

// Increment adds amount without any bound. A negative amount lowers the value
// and is not clamped, unlike Decrement. Results past the int64 range saturate.
func (c Counter) Increment(amount int64) Counter {
	return Counter{BaseEntity: c.touched(), value: saturatingAdd(c.value, amount)}
}

// IncrementOne is Increment(1)
func (c Counter) IncrementOne() Counter {
	return c.Increment(1)
}

// Decrement subtracts amount, clamping the result at zero
func (c Counter) Decrement(amount int64) Counter {
	return Counter{BaseEntity: c.touched(), value: max(0, saturatingSub(c.value, amount))}
}

// DecrementOne is Decrement(1)
func (c Counter) DecrementOne() Counter {
	return c.Decrement(1)
}

// Reset sets the value back to zero
func (c Counter) Reset() Counter {
	return Counter{BaseEntity: c.touched(), value: 0}
}

// Equals compares identity only; value and timestamps are ignored
func (c Counter) Equals(other Counter) bool {
	return c.BaseEntity.Equals(other.BaseEntity)
}

func (c Counter) String() string {
	return fmt.Sprintf("Counter{id=%s value=%d}", c.id, c.value)
}

func saturatingAdd(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

func saturatingSub(a, b int64) int64 {
	switch {
	case b > 0 && a < math.MinInt64+b:
		return math.MinInt64
	case b < 0 && a > math.MaxInt64+b:
		return math.MaxInt64
	}
	return a - b
}
