// Package ratelimit implements the per-tenant sliding window gating
// outbound sends: at most limit sends per rolling window, enforced by
// purging expired send timestamps before each admission check.
package ratelimit

import (
	"sync"
	"time"
)

type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	sent   []time.Time
}

func NewWindow(limit int, window time.Duration) *Window {
	return &Window{limit: limit, window: window}
}

// Allow purges timestamps older than now-window and reports whether another
// send is admissible. It records nothing; call Record once the send has
// actually succeeded.
func (w *Window) Allow(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(now)
	return len(w.sent) < w.limit
}

// Record appends a successful send timestamp. Timestamps arrive in
// non-decreasing order (single writer per tenant).
func (w *Window) Record(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, t)
}

// CountSince reports how many recorded sends are newer than cutoff, without
// purging. The stats endpoint uses it.
func (w *Window) CountSince(cutoff time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, t := range w.sent {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (w *Window) Limit() int {
	return w.limit
}

func (w *Window) Span() time.Duration {
	return w.window
}

// purge drops entries strictly older than now-window. Entries are appended
// in order, so the retained tail starts at the first fresh one.
func (w *Window) purge(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.sent) && w.sent[i].Before(cutoff) {
		i++
	}
	w.sent = w.sent[i:]
}
