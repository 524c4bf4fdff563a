package api

import (
	"strconv"
	"sync"
	"time"
)

// Throttle caps how many trades each actor may place per window. It guards
// the trade endpoint against spam that would churn prices faster than the
// decay and analysis jobs can counteract.
type Throttle struct {
	mu      sync.Mutex
	actors  map[string]*window
	maxOps  int
	period  time.Duration
	swept   time.Time
	nowFunc func() time.Time
}

type window struct {
	remaining int
	openedAt  time.Time
}

// NewThrottle allows maxOps trades per actor per period.
func NewThrottle(maxOps int, period time.Duration) *Throttle {
	return &Throttle{
		actors:  make(map[string]*window),
		maxOps:  maxOps,
		period:  period,
		nowFunc: time.Now,
	}
}

// Allow consumes one trade slot for the actor, reporting false when the
// actor has exhausted the current window.
func (t *Throttle) Allow(actor string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	t.sweepLocked(now)

	w, ok := t.actors[actor]
	if !ok || now.Sub(w.openedAt) >= t.period {
		t.actors[actor] = &window{remaining: t.maxOps - 1, openedAt: now}
		return true
	}
	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// RetryAfter returns the Retry-After header value for a throttled actor.
func (t *Throttle) RetryAfter(actor string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.actors[actor]
	if !ok {
		return "0"
	}
	left := t.period - t.nowFunc().Sub(w.openedAt)
	if left < 0 {
		return "0"
	}
	return strconv.Itoa(int(left.Seconds()) + 1)
}

// sweepLocked drops expired windows at most once per period.
func (t *Throttle) sweepLocked(now time.Time) {
	if now.Sub(t.swept) < t.period {
		return
	}
	t.swept = now
	for actor, w := range t.actors {
		if now.Sub(w.openedAt) >= t.period {
			delete(t.actors, actor)
		}
	}
}
