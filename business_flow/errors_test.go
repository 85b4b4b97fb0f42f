package businessflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterNotFoundError(t *testing.T) {
	err := fmt.Errorf("get counter: %w", NewCounterNotFoundError("missing"))

	assert.True(t, IsCounterNotFound(err))
	assert.False(t, IsCounterLocked(err))
	assert.Equal(t, "Counter with id missing not found: counter not found", errors.Unwrap(err).Error())

	id, ok := CounterIDFromError(err)
	assert.True(t, ok)
	assert.Equal(t, "missing", id)

	code, ok := BusinessErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, "COUNTER_NOT_FOUND", code)
}

func TestBusinessErrorHelpers(t *testing.T) {
	locked := NewBusinessErrorf("COUNTER_BUSY", "counter %s is busy", ErrCounterLocked, "a")
	assert.True(t, IsCounterLocked(locked))
	assert.Equal(t, "counter a is busy: counter is locked by another writer", locked.Error())

	plain := NewBusinessError("INVALID_AMOUNT", "amount must not be negative", nil)
	assert.Equal(t, "amount must not be negative", plain.Error())
	assert.False(t, IsInvalidAmount(plain))

	_, ok := CounterIDFromError(errors.New("boom"))
	assert.False(t, ok)
	_, ok = BusinessErrorCode(errors.New("boom"))
	assert.False(t, ok)
}
