package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewTaskID returns a sortable task identifier.
func NewTaskID() string {
	t := time.Now().UTC()
	return "task_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

const subjectPreviewLen = 20

// SubjectPreview truncates long subjects for log lines; the full subject is
// still used on the wire.
func SubjectPreview(s string) string {
	if len(s) > subjectPreviewLen {
		return s[:subjectPreviewLen] + "..."
	}
	return s
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
