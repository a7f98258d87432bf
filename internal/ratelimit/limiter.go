package ratelimit

import (
	"sync"
	"time"
)

// Clock provides time for admission checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Limiter admits requests within a sliding time window. Each device
// registration owns exactly one limiter; Allow is a single critical section
// so concurrent handlers cannot double-admit.
type Limiter struct {
	maxRequests int
	window      time.Duration
	clock       Clock

	mu     sync.Mutex
	stamps []time.Time
}

// Option configures the limiter.
type Option func(*Limiter)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLimiter constructs a sliding-window limiter. maxRequests and window must
// both be positive; a non-positive value disables limiting (Allow always true).
func NewLimiter(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		clock:       systemClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether one more request may proceed now. A denied request is
// not recorded, so rejections never extend the window.
func (l *Limiter) Allow() bool {
	if l == nil || l.maxRequests <= 0 || l.window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	kept := 0
	for _, stamp := range l.stamps {
		if stamp.After(cutoff) {
			break
		}
		kept++
	}
	if kept > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[kept:]...)
	}

	if len(l.stamps) >= l.maxRequests {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Pending returns the number of admissions currently inside the window.
func (l *Limiter) Pending() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.clock.Now().Add(-l.window)
	count := 0
	for _, stamp := range l.stamps {
		if stamp.After(cutoff) {
			count++
		}
	}
	return count
}
