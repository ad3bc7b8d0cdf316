package util

import (
	"strings"
	"testing"
)

func TestSubjectPreview(t *testing.T) {
	short := "Hello"
	if got := SubjectPreview(short); got != short {
		t.Fatalf("short subject changed: %q", got)
	}

	exact := strings.Repeat("a", 20)
	if got := SubjectPreview(exact); got != exact {
		t.Fatalf("20-char subject changed: %q", got)
	}

	long := strings.Repeat("a", 21)
	want := strings.Repeat("a", 20) + "..."
	if got := SubjectPreview(long); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNewTaskID(t *testing.T) {
	a := NewTaskID()
	b := NewTaskID()
	if !strings.HasPrefix(a, "task_") {
		t.Fatalf("expected task_ prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected unique ids, got %q twice", a)
	}
}
