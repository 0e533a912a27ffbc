// Package ratelimit implements a process-local fixed-window request counter.
//
// Windows reset at fixed boundaries rather than sliding, so a client can get
// up to 2×limit requests through across one boundary. State lives in memory
// only: it is lost on restart and every process enforces its own limit.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/zap"
)

// DefaultCleanupInterval is how often elapsed windows are swept when no interval is configured.
const DefaultCleanupInterval = 5 * time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

type Limiter struct {
	mu              sync.Mutex
	windows         map[string]*window
	clock           clock.Clock
	logger          *logging.Service
	cleanupInterval time.Duration

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewLimiter(clk clock.Clock, cleanupInterval time.Duration, logger *logging.Service) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	return &Limiter{
		windows:         make(map[string]*window),
		clock:           clk,
		logger:          logger,
		cleanupInterval: cleanupInterval,
	}
}

// Check counts one request against key. A missing or elapsed window is
// replaced by a fresh one with count 1. A full window denies without counting.
func (l *Limiter) Check(key string, limit int, period time.Duration) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(period)}
		l.windows[key] = w
		return decision(true, w, limit)
	}

	if w.count >= limit {
		return decision(false, w, limit)
	}

	w.count++
	return decision(true, w, limit)
}

func decision(allowed bool, w *window, limit int) Decision {
	return Decision{
		Allowed:   allowed,
		Count:     w.count,
		Limit:     limit,
		Remaining: max(limit-w.count, 0),
		ResetAt:   w.resetAt,
	}
}

// Sweep removes every window whose reset time has passed and reports how many were dropped.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Start runs Sweep every cleanup interval until Stop is called or ctx ends.
func (l *Limiter) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)

		ticker := time.NewTicker(l.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := l.Sweep(); removed > 0 && l.logger != nil {
					l.logger.Debug("swept elapsed rate limit windows",
						zap.Int("removed", removed),
						zap.Int("remaining", l.Len()))
				}
			}
		}
	}()

	if l.logger != nil {
		l.logger.Info("started rate limit sweeper", zap.Duration("interval", l.cleanupInterval))
	}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cancel == nil {
			return
		}
		l.cancel()
		<-l.done
	})
}
