package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeref(t *testing.T) {
	assert.Equal(t, int64(1), Deref[int64](nil, 1))
	assert.Equal(t, int64(7), Deref(ToPtr(int64(7)), 1))
	assert.Equal(t, "", Deref(ToPtr(""), "x"))
}

func TestOrUTCNow(t *testing.T) {
	before := time.Now().UTC()
	got := OrUTCNow(time.Time{})
	assert.False(t, got.Before(before))

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	assert.Equal(t, fixed.UTC(), OrUTCNow(fixed))
	assert.Equal(t, time.UTC, OrUTCNow(fixed).Location())
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	parsed, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}
