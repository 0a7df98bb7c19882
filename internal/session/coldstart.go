package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ColdStartLimiter rate limits synthetic open events per URI so an
// editor firing feature requests for many never-opened files cannot
// trigger an unbounded burst of disk reads and fetch batches.
type ColdStartLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewColdStartLimiter builds a limiter allowing perSec events per URI
// per second. Entries idle for sweepEvery are dropped by a background
// sweep so the map stays bounded by the set of recently active URIs.
func NewColdStartLimiter(perSec int, sweepEvery time.Duration) *ColdStartLimiter {
	if perSec <= 0 {
		perSec = 10
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	l := &ColdStartLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSec),
		burst:    perSec,
		idle:     sweepEvery,
		stop:     make(chan struct{}),
	}
	go l.sweep(sweepEvery)
	return l
}

// Allow reports whether a cold start for uri may proceed now.
// Over-limit events are simply dropped; there is no queueing.
func (l *ColdStartLimiter) Allow(uri string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[uri]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[uri] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Stop ends the sweep goroutine.
func (l *ColdStartLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ColdStartLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for uri, entry := range l.limiters {
				if now.Sub(entry.lastSeen) >= l.idle {
					delete(l.limiters, uri)
				}
			}
			l.mu.Unlock()
		}
	}
}
