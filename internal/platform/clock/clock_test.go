package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	c := NewFixed(at)

	assert.Equal(t, at.UTC(), c.Now())
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestSystemClock(t *testing.T) {
	before := time.Now()
	now := NewSystem().Now()

	assert.WithinDuration(t, before, now, time.Second)
	assert.Equal(t, time.UTC, now.Location())
}
