// Package activity keeps the bounded ring of recent dispatcher events that
// the operator UI polls. Entries are also mirrored to slog.
package activity

import (
	"log/slog"
	"sync"
	"time"

	"mailhub/internal/domain"
)

// ringCapacity bounds the ring; on overflow the oldest entry is evicted
// before the newest is appended.
const ringCapacity = 101

type Log struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	now     func() time.Time
}

func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds an entry, evicting the oldest once the ring is full.
func (l *Log) Append(severity domain.Severity, tenant, msg string) {
	e := domain.LogEntry{
		Time:     l.now().Format("15:04:05"),
		Message:  msg,
		Severity: severity,
		Tenant:   tenant,
	}

	l.mu.Lock()
	if len(l.entries) >= ringCapacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	switch severity {
	case domain.SeverityWarning:
		slog.Warn(msg, "brand", tenant)
	case domain.SeverityError:
		slog.Error(msg, "brand", tenant)
	default:
		slog.Info(msg, "brand", tenant)
	}
}

// Snapshot returns a copy of the current entries, oldest first, so callers
// are insulated from concurrent mutation.
func (l *Log) Snapshot() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
