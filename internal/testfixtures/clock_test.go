package testfixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.True(t, clock.Now().Equal(ReferenceTime()))
	assert.Equal(t, int64(1791970200000), clock.UnixMilli())
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), updated)

	clock.Set(start.Add(2 * time.Hour))
	assert.Equal(t, start.Add(2*time.Hour), clock.Now())
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Time{})
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	assert.Equal(t, clock.Now(), nowFn())

	var nilClock *Clock
	assert.WithinDuration(t, time.Now(), nilClock.NowFunc()(), time.Minute)
}
