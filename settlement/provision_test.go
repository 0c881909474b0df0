package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotEndFloorsToMode(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 7, 30, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC), SlotEnd(now, 5))
	assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), SlotEnd(now, 10))
	assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), SlotEnd(now, 15))
}

func TestSlotEndOnBoundary(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, now, SlotEnd(now, 15))
}

func TestSlotEndIgnoresLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 10, 19, 15, 37, 30, 0, ist)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC), SlotEnd(now, 5))
}

func TestSlotsLookback(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 7, 30, 0, time.UTC)

	assert.Equal(t, []time.Time{
		time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC),
		time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}, Slots(now, 5, 2))
	assert.Len(t, Slots(now, 5, 0), 1)
}

func TestNextSlot(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 7, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 19, 10, 10, 0, 0, time.UTC), NextSlot(now, 5))
}
