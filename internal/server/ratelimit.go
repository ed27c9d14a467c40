package server

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// paintLimiter enforces a per-user cooldown between paints. State is
// in-memory only: a restart forgets cooldowns, which is acceptable for a
// one-second window.
type paintLimiter struct {
	cooldown time.Duration
	last     *xsync.MapOf[string, int64] // user ID -> unix nanos of last paint

	// now is overridable for tests.
	now func() time.Time
}

func newPaintLimiter(cooldown time.Duration) *paintLimiter {
	return &paintLimiter{
		cooldown: cooldown,
		last:     xsync.NewMapOf[string, int64](),
		now:      time.Now,
	}
}

// allow records a paint attempt and reports whether it is inside the
// cooldown. Check-and-update is atomic per user via Compute, so two
// simultaneous paints from the same user cannot both pass.
func (l *paintLimiter) allow(userID string) bool {
	if l.cooldown <= 0 {
		return true
	}

	now := l.now().UnixNano()
	allowed := false
	l.last.Compute(userID, func(prev int64, loaded bool) (int64, bool) {
		if loaded && now-prev < l.cooldown.Nanoseconds() {
			return prev, false
		}
		allowed = true
		return now, false
	})
	return allowed
}
