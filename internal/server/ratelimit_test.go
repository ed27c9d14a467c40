package server

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(cooldown time.Duration) (*paintLimiter, func(d time.Duration)) {
	l := newPaintLimiter(cooldown)
	var now atomic.Int64
	now.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	l.now = func() time.Time { return time.Unix(0, now.Load()) }
	advance := func(d time.Duration) { now.Add(int64(d)) }
	return l, advance
}

func TestPaintLimiter_Cooldown(t *testing.T) {
	l, advance := newTestLimiter(time.Second)

	assert.True(t, l.allow("u-1"), "first paint passes")
	assert.False(t, l.allow("u-1"), "immediate retry blocked")

	advance(500 * time.Millisecond)
	assert.False(t, l.allow("u-1"), "still inside the window")

	advance(600 * time.Millisecond)
	assert.True(t, l.allow("u-1"), "window elapsed")
}

func TestPaintLimiter_PerUser(t *testing.T) {
	l, _ := newTestLimiter(time.Second)

	assert.True(t, l.allow("u-1"))
	assert.True(t, l.allow("u-2"), "cooldowns are tracked per user")
}

func TestPaintLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(0)

	for i := 0; i < 5; i++ {
		assert.True(t, l.allow("u-1"))
	}
}

func TestPaintLimiter_ConcurrentSameUser(t *testing.T) {
	l, _ := newTestLimiter(time.Minute)

	// Many simultaneous paints from one user: exactly one passes.
	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.allow("u-1") {
				atomic.AddInt32(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&allowed))
}
