package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowAndRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 0.5)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"))
	assert.Equal(t, 2*time.Second, l.RetryAfter("1.2.3.4"))

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(5, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(4 * time.Second)
	l.Allow("b")
	now = now.Add(time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Sweep())
}
