package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/todostack/internal/clock"
)

func TestRealNowUsesUTC(t *testing.T) {
	now := clock.Real{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, 0, now.Nanosecond())
	assert.WithinDuration(t, time.Now(), now, 2*time.Second)
}

func TestManualAdvance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := clock.NewManual(start)
	assert.Equal(t, start, m.Now())

	m.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), m.Now())

	m.Advance(-time.Hour)
	assert.Equal(t, start.Add(90*time.Second), m.Now(), "negative advance is ignored")
}
