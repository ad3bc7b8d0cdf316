// Package worker runs the per-tenant dispatch loop: pull the head task,
// consult the tenant window, render, transmit, resolve.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mailhub/internal/activity"
	"mailhub/internal/config"
	"mailhub/internal/domain"
	"mailhub/internal/mailer"
	"mailhub/internal/observability"
	"mailhub/internal/queue"
	"mailhub/internal/ratelimit"
	"mailhub/internal/render"
	"mailhub/internal/store/sqlite"
	"mailhub/internal/util"
)

type History interface {
	InsertDelivery(ctx context.Context, row sqlite.DeliveryRow) error
}

// Worker is the single consumer of one tenant's queue. Exactly one Run
// loop per tenant, so a claimed head task is never contended.
type Worker struct {
	Tenant   config.TenantConfig
	Queue    *queue.TenantQueue
	Window   *ratelimit.Window
	Renderer *render.Renderer
	Mailer   mailer.Mailer
	Activity *activity.Log
	History  History // optional

	IdleInterval    time.Duration
	BackoffInterval time.Duration
}

type outcome int

const (
	outcomeIdle outcome = iota
	outcomeSent
	outcomeFailed
	outcomeRateLimited
)

// Run loops until ctx is canceled. The stop signal is checked once per
// iteration; a send already in flight completes first.
func (w *Worker) Run(ctx context.Context) {
	idle := w.IdleInterval
	if idle <= 0 {
		idle = time.Second
	}
	backoff := w.BackoffInterval
	if backoff <= 0 {
		backoff = 10 * time.Second
	}

	slog.Info("worker started", "brand", w.Tenant.Name)
	for {
		var wait time.Duration
		switch w.step(ctx) {
		case outcomeIdle:
			wait = idle
		case outcomeRateLimited:
			wait = backoff
		}

		if wait == 0 {
			select {
			case <-ctx.Done():
				slog.Info("worker stopped", "brand", w.Tenant.Name)
				return
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			slog.Info("worker stopped", "brand", w.Tenant.Name)
			return
		case <-time.After(wait):
		}
	}
}

// step resolves at most one head task and reports how the loop should
// proceed. A denied rate check retains the task; any render or transmit
// error discards it so a poison task cannot block the tenant.
func (w *Worker) step(ctx context.Context) outcome {
	task, ok := w.Queue.Peek()
	if !ok {
		return outcomeIdle
	}

	if !w.Window.Allow(time.Now()) {
		w.Activity.Append(domain.SeverityWarning, w.Tenant.Name,
			fmt.Sprintf("Rate limit hit (%d per %s). Pausing...", w.Window.Limit(), w.Window.Span()))
		observability.RateLimited.WithLabelValues(w.Tenant.Name).Inc()
		return outcomeRateLimited
	}

	preview := util.SubjectPreview(task.Subject)
	start := time.Now()

	if err := w.deliver(ctx, task); err != nil {
		w.Activity.Append(domain.SeverityError, w.Tenant.Name,
			fmt.Sprintf("Failed %q to %s: %v", preview, task.Recipient, err))
		observability.Sends.WithLabelValues(w.Tenant.Name, "error").Inc()
		w.recordHistory(ctx, task, sqlite.OutcomeFailed, err.Error())
		w.pop()
		return outcomeFailed
	}

	w.Window.Record(time.Now())
	observability.Sends.WithLabelValues(w.Tenant.Name, "ok").Inc()
	observability.SendLatency.Observe(time.Since(start).Seconds())
	w.Activity.Append(domain.SeveritySuccess, w.Tenant.Name,
		fmt.Sprintf("Sent %q to %s", preview, task.Recipient))
	w.recordHistory(ctx, task, sqlite.OutcomeSent, "")
	w.pop()
	return outcomeSent
}

func (w *Worker) deliver(ctx context.Context, task domain.SendTask) error {
	msg, warnings, err := w.Renderer.Render(task, w.Tenant)
	for _, warn := range warnings {
		w.Activity.Append(domain.SeverityWarning, w.Tenant.Name, warn)
	}
	if err != nil {
		return err
	}
	return w.Mailer.Send(ctx, msg)
}

func (w *Worker) pop() {
	w.Queue.Pop()
	observability.QueueDepth.WithLabelValues(w.Tenant.Name).Set(float64(w.Queue.Depth()))
}

// recordHistory is best effort; a history failure must never affect the
// queue outcome.
func (w *Worker) recordHistory(ctx context.Context, task domain.SendTask, outcome, detail string) {
	if w.History == nil {
		return
	}
	row := sqlite.DeliveryRow{
		TaskID:    task.ID,
		Tenant:    task.Tenant,
		Recipient: task.Recipient,
		Subject:   task.Subject,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: util.NowUTC(),
	}
	if err := w.History.InsertDelivery(ctx, row); err != nil {
		slog.Warn("history insert failed", "brand", w.Tenant.Name, "err", err)
	}
}
