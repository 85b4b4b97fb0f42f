// Package testing provides test utilities and database setup for testing the counter service
package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/counter-clean-arch/models"
	"github.com/amirphl/counter-clean-arch/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCounter inserts a counter row with the given id and value
func (tf *TestFixtures) CreateTestCounter(id string, value int64) (*models.CounterRecord, error) {
	now := utils.UTCNow()
	row := &models.CounterRecord{
		ID:        id,
		Value:     value,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}
	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test counter %s: %w", id, err)
	}
	return row, nil
}

// CountRows returns how many counters the table holds
func (tf *TestFixtures) CountRows() (int64, error) {
	var n int64
	if err := tf.DB.DB.Model(&models.CounterRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count counters: %w", err)
	}
	return n, nil
}

// NewCounterAt builds a counter whose timestamps are both set to at
func NewCounterAt(id string, value int64, at time.Time) models.Counter {
	return models.NewCounter(models.CounterProps{
		ID:        id,
		Value:     value,
		CreatedAt: &at,
		UpdatedAt: &at,
	})
}
