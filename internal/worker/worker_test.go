package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mailhub/internal/activity"
	"mailhub/internal/config"
	"mailhub/internal/domain"
	"mailhub/internal/queue"
	"mailhub/internal/ratelimit"
	"mailhub/internal/render"
	"mailhub/internal/store/sqlite"
)

type fakeMailer struct {
	sent []render.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg render.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeHistory struct {
	rows []sqlite.DeliveryRow
}

func (h *fakeHistory) InsertDelivery(ctx context.Context, row sqlite.DeliveryRow) error {
	h.rows = append(h.rows, row)
	return nil
}

func newTestWorker(t *testing.T, limit int, m *fakeMailer) (*Worker, *fakeHistory) {
	t.Helper()
	h := &fakeHistory{}
	w := &Worker{
		Tenant:   config.TenantConfig{Name: "Talrn", User: "hire@b.example.com", CID: "talrn_logo", Limit: limit, Window: time.Hour},
		Queue:    queue.New(),
		Window:   ratelimit.NewWindow(limit, time.Hour),
		Renderer: render.New(t.TempDir(), []string{"talrn_logo", "leaders_logo"}),
		Mailer:   m,
		Activity: activity.NewLog(),
		History:  h,
	}
	return w, h
}

func task(recipient, subject string) domain.SendTask {
	return domain.SendTask{ID: "task_1", Recipient: recipient, Subject: subject, Body: "hi", Tenant: "Talrn"}
}

func TestStepIdleOnEmptyQueue(t *testing.T) {
	w, _ := newTestWorker(t, 5, &fakeMailer{})
	if got := w.step(context.Background()); got != outcomeIdle {
		t.Fatalf("expected idle outcome, got %v", got)
	}
}

func TestStepSendSuccess(t *testing.T) {
	m := &fakeMailer{}
	w, h := newTestWorker(t, 5, m)
	w.Queue.Enqueue(task("a@x.com", "Hello"))

	if got := w.step(context.Background()); got != outcomeSent {
		t.Fatalf("expected sent outcome, got %v", got)
	}
	if w.Queue.Depth() != 0 {
		t.Fatalf("sent task not removed, depth %d", w.Queue.Depth())
	}
	if got := w.Window.CountSince(time.Now().Add(-time.Hour)); got != 1 {
		t.Fatalf("expected 1 recorded send, got %d", got)
	}
	if len(m.sent) != 1 || m.sent[0].To != "a@x.com" {
		t.Fatalf("mailer calls wrong: %+v", m.sent)
	}
	if len(h.rows) != 1 || h.rows[0].Outcome != sqlite.OutcomeSent {
		t.Fatalf("history rows wrong: %+v", h.rows)
	}

	logs := w.Activity.Snapshot()
	last := logs[len(logs)-1]
	if last.Severity != domain.SeveritySuccess || !strings.Contains(last.Message, "a@x.com") {
		t.Fatalf("expected success entry, got %+v", last)
	}
}

func TestStepDeliveryFailureDiscards(t *testing.T) {
	m := &fakeMailer{err: errors.New("connection refused")}
	w, h := newTestWorker(t, 5, m)
	w.Queue.Enqueue(task("a@x.com", "Hello"))

	if got := w.step(context.Background()); got != outcomeFailed {
		t.Fatalf("expected failed outcome, got %v", got)
	}
	if w.Queue.Depth() != 0 {
		t.Fatalf("failed task must be discarded, depth %d", w.Queue.Depth())
	}
	if got := w.Window.CountSince(time.Now().Add(-time.Hour)); got != 0 {
		t.Fatalf("failed send must not be recorded, got %d", got)
	}
	if len(h.rows) != 1 || h.rows[0].Outcome != sqlite.OutcomeFailed || h.rows[0].Detail == "" {
		t.Fatalf("history rows wrong: %+v", h.rows)
	}

	logs := w.Activity.Snapshot()
	last := logs[len(logs)-1]
	if last.Severity != domain.SeverityError || !strings.Contains(last.Message, "connection refused") {
		t.Fatalf("expected error entry with detail, got %+v", last)
	}
}

func TestStepRateLimitedRetains(t *testing.T) {
	m := &fakeMailer{}
	w, h := newTestWorker(t, 1, m)
	w.Window.Record(time.Now())
	w.Queue.Enqueue(task("a@x.com", "Hello"))

	if got := w.step(context.Background()); got != outcomeRateLimited {
		t.Fatalf("expected rate-limited outcome, got %v", got)
	}
	if w.Queue.Depth() != 1 {
		t.Fatalf("rate-limited task must be retained, depth %d", w.Queue.Depth())
	}
	if len(m.sent) != 0 {
		t.Fatalf("mailer must not be called when denied")
	}
	if got := w.Window.CountSince(time.Now().Add(-time.Hour)); got != 1 {
		t.Fatalf("denied attempt must not add a record, got %d", got)
	}
	if len(h.rows) != 0 {
		t.Fatalf("denied attempt must not reach history: %+v", h.rows)
	}

	logs := w.Activity.Snapshot()
	last := logs[len(logs)-1]
	if last.Severity != domain.SeverityWarning || !strings.Contains(last.Message, "Rate limit hit") {
		t.Fatalf("expected rate-limit warning, got %+v", last)
	}
}

func TestStepProcessesInFIFOOrder(t *testing.T) {
	m := &fakeMailer{}
	w, _ := newTestWorker(t, 10, m)
	for _, r := range []string{"a@x.com", "b@y.com", "c@z.com"} {
		w.Queue.Enqueue(task(r, "Hello"))
	}

	for i := 0; i < 3; i++ {
		if got := w.step(context.Background()); got != outcomeSent {
			t.Fatalf("step %d: expected sent, got %v", i, got)
		}
	}
	if len(m.sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(m.sent))
	}
	for i, want := range []string{"a@x.com", "b@y.com", "c@z.com"} {
		if m.sent[i].To != want {
			t.Fatalf("send %d: expected %s, got %s", i, want, m.sent[i].To)
		}
	}
}

func TestSubjectTruncatedInLogOnly(t *testing.T) {
	m := &fakeMailer{}
	w, _ := newTestWorker(t, 5, m)
	long := strings.Repeat("x", 30)
	w.Queue.Enqueue(task("a@x.com", long))

	if got := w.step(context.Background()); got != outcomeSent {
		t.Fatalf("expected sent, got %v", got)
	}

	logs := w.Activity.Snapshot()
	last := logs[len(logs)-1]
	preview := strings.Repeat("x", 20) + "..."
	if !strings.Contains(last.Message, preview) {
		t.Fatalf("expected truncated subject in log, got %q", last.Message)
	}
	if strings.Contains(last.Message, long) {
		t.Fatalf("full subject leaked into log line: %q", last.Message)
	}
	// the wire message still carries the full subject
	if !strings.Contains(string(m.sent[0].Data), long) {
		t.Fatalf("full subject missing from message data")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w, _ := newTestWorker(t, 5, &fakeMailer{})
	w.IdleInterval = time.Millisecond
	w.BackoffInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after cancel")
	}
}
