// Package ratelimit provides sliding-window admission control for the QA
// pipeline. A local in-memory limiter tracks per-identifier request
// timestamps under fine-grained locks; an optional Redis-backed limiter
// extends the same window semantics across service instances and degrades
// gracefully to local-only operation when Redis is unreachable.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
)

// Default admission limits, matching the process-wide limiter.
const (
	DefaultMaxRequests = 20
	DefaultWindow      = time.Minute
)

// Admitter decides whether a request identified by a caller-chosen key may
// proceed. Refusal is reported as *llmerrors.RateLimitError.
type Admitter interface {
	Check(ctx context.Context, identifier string) error
}

// window holds one identifier's admission timestamps, oldest first.
// Each window has its own mutex so contention on one identifier never
// blocks admission checks for another.
type window struct {
	mu    sync.Mutex
	times []time.Time
}

// Limiter is a thread-safe sliding-window rate limiter. On every check the
// identifier's timestamps are pruned to the trailing window before the
// admission decision, so at most maxRequests entries survive pruning.
type Limiter struct {
	// mu guards the windows map and the configuration fields.
	mu      sync.RWMutex
	windows map[string]*window

	maxRequests int
	windowSize  time.Duration

	// now is injectable for deterministic window-expiry tests.
	now func() time.Time

	stats  Stats
	logger *slog.Logger
}

// New creates a limiter admitting at most maxRequests per identifier within
// the trailing windowSize. Non-positive arguments fall back to defaults.
func New(maxRequests int, windowSize time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	return &Limiter{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		windowSize:  windowSize,
		now:         time.Now,
		logger:      slog.Default().With("component", "ratelimit"),
	}
}

// defaultLimiter serves callers that construct a Service without an
// explicit limiter. Tests construct their own instances.
var defaultLimiter = New(DefaultMaxRequests, DefaultWindow)

// Default returns the process-wide limiter instance.
func Default() *Limiter { return defaultLimiter }

// Allow reports whether the identifier may proceed now. On refusal the
// second return value is the time until the oldest retained request leaves
// the window. Admission appends the current timestamp.
func (l *Limiter) Allow(identifier string) (bool, time.Duration) {
	l.mu.RLock()
	w, ok := l.windows[identifier]
	maxRequests, windowSize := l.maxRequests, l.windowSize
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		if w, ok = l.windows[identifier]; !ok {
			w = &window{}
			l.windows[identifier] = w
		}
		maxRequests, windowSize = l.maxRequests, l.windowSize
		l.mu.Unlock()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-windowSize)

	// Prune entries older than the window. Timestamps are ordered, so the
	// survivors are a suffix.
	keep := 0
	for keep < len(w.times) && !w.times[keep].After(cutoff) {
		keep++
	}
	w.times = w.times[keep:]

	if len(w.times) < maxRequests {
		w.times = append(w.times, now)
		l.stats.recordAdmit()
		return true, 0
	}

	retryAfter := w.times[0].Add(windowSize).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	l.stats.recordRefuse()
	return false, retryAfter
}

// Check implements Admitter over Allow, converting refusals into typed
// rate limit errors carrying the retry-after hint.
func (l *Limiter) Check(_ context.Context, identifier string) error {
	allowed, retryAfter := l.Allow(identifier)
	if allowed {
		return nil
	}

	l.mu.RLock()
	limit := l.maxRequests
	l.mu.RUnlock()

	l.logger.Warn("request refused by rate limiter",
		"identifier", identifier,
		"limit", limit,
		"retry_after", retryAfter)

	return &llmerrors.RateLimitError{
		Identifier: identifier,
		Limit:      limit,
		RetryAfter: retryAfter,
	}
}

// Configure replaces the admission limits. Existing windows keep their
// recorded timestamps and are re-evaluated against the new limits on the
// next check.
func (l *Limiter) Configure(maxRequests int, windowSize time.Duration) {
	if maxRequests <= 0 || windowSize <= 0 {
		return
	}
	l.mu.Lock()
	l.maxRequests = maxRequests
	l.windowSize = windowSize
	l.mu.Unlock()
}

// Reset clears tracking for the given identifiers, or all identifiers when
// none are given.
func (l *Limiter) Reset(identifiers ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(identifiers) == 0 {
		l.windows = make(map[string]*window)
		return
	}
	for _, id := range identifiers {
		delete(l.windows, id)
	}
}

// Prune drops identifiers whose windows hold no live timestamps. Intended
// for periodic invocation by long-running shells; the limiter itself starts
// no background work.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.windowSize)
	removed := 0
	for id, w := range l.windows {
		w.mu.Lock()
		live := false
		for _, t := range w.times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		w.mu.Unlock()
		if !live {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// Combine stacks admitters so that every layer must admit a request.
// Mirrors the dual local-plus-distributed deployment: the fast local check
// runs first, the distributed check second.
func Combine(admitters ...Admitter) Admitter {
	return multiAdmitter(admitters)
}

type multiAdmitter []Admitter

func (m multiAdmitter) Check(ctx context.Context, identifier string) error {
	for _, a := range m {
		if err := a.Check(ctx, identifier); err != nil {
			return err
		}
	}
	return nil
}
