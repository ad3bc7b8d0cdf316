// Package dispatch owns the per-tenant queues, windows, and workers, and
// is the API the transport layer calls into. Tenants are fully independent:
// each has its own queue, window, and worker goroutine, so one tenant
// stalling on its rate limit never affects another.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mailhub/internal/activity"
	"mailhub/internal/config"
	"mailhub/internal/domain"
	"mailhub/internal/mailer"
	"mailhub/internal/observability"
	"mailhub/internal/queue"
	"mailhub/internal/ratelimit"
	"mailhub/internal/render"
	"mailhub/internal/util"
	"mailhub/internal/worker"
)

type tenant struct {
	cfg    config.TenantConfig
	queue  *queue.TenantQueue
	window *ratelimit.Window
	worker *worker.Worker
}

type Options struct {
	Tenants   []config.TenantConfig
	Renderer  *render.Renderer
	Activity  *activity.Log
	History   worker.History
	NewMailer func(config.TenantConfig) mailer.Mailer

	IdleInterval    time.Duration
	BackoffInterval time.Duration

	// IDGen overrides task ID generation in tests.
	IDGen func() string
}

type Dispatcher struct {
	tenants  []*tenant          // declaration order; the first is the primary
	byName   map[string]*tenant // keyed by lower-cased display name
	activity *activity.Log
	idGen    func() string
	wg       sync.WaitGroup
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		byName:   make(map[string]*tenant, len(opts.Tenants)),
		activity: opts.Activity,
		idGen:    opts.IDGen,
	}
	if d.idGen == nil {
		d.idGen = util.NewTaskID
	}
	for _, tc := range opts.Tenants {
		t := &tenant{
			cfg:    tc,
			queue:  queue.New(),
			window: ratelimit.NewWindow(tc.Limit, tc.Window),
		}
		t.worker = &worker.Worker{
			Tenant:          tc,
			Queue:           t.queue,
			Window:          t.window,
			Renderer:        opts.Renderer,
			Mailer:          opts.NewMailer(tc),
			Activity:        opts.Activity,
			History:         opts.History,
			IdleInterval:    opts.IdleInterval,
			BackoffInterval: opts.BackoffInterval,
		}
		d.tenants = append(d.tenants, t)
		d.byName[strings.ToLower(tc.Name)] = t
	}
	return d
}

// Start launches one worker goroutine per tenant.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, t := range d.tenants {
		d.wg.Add(1)
		go func(t *tenant) {
			defer d.wg.Done()
			t.worker.Run(ctx)
		}(t)
	}
	d.activity.Append(domain.SeverityInfo, "System", "System started. Workers ready.")
}

// Wait blocks until every worker has observed the stop signal and exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit validates a request and fans it out into one task per recipient
// on the matching tenant's queue. Submission is fire-and-forget: outcomes
// are observed via the activity log and stats, never returned here.
func (d *Dispatcher) Submit(req domain.SendEmailRequest) (domain.QueuedResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.QueuedResponse{}, err
	}

	t := d.route(req.Brand)
	recipients := domain.SplitRecipients(req.Recipients)
	for _, rcpt := range recipients {
		t.queue.Enqueue(domain.SendTask{
			ID:        d.idGen(),
			Recipient: rcpt,
			Subject:   req.Subject,
			Body:      req.Body,
			IsHTML:    req.IsHTML,
			ReplyTo:   req.ReplyTo,
			Tenant:    t.cfg.Name,
		})
	}
	observability.Enqueued.WithLabelValues(t.cfg.Name).Add(float64(len(recipients)))
	observability.QueueDepth.WithLabelValues(t.cfg.Name).Set(float64(t.queue.Depth()))

	msg := fmt.Sprintf("Queued %d emails", len(recipients))
	d.activity.Append(domain.SeverityInfo, t.cfg.Name, msg)
	return domain.QueuedResponse{Status: "Queued", Msg: msg}, nil
}

// route matches brand case-insensitively; unrecognized or absent brands go
// to the primary tenant.
func (d *Dispatcher) route(brand string) *tenant {
	if t, ok := d.byName[strings.ToLower(strings.TrimSpace(brand))]; ok {
		return t
	}
	return d.tenants[0]
}

// Stats reports queue depth and window-bounded send counts per tenant.
// Read-only: counting never purges the windows.
func (d *Dispatcher) Stats(now time.Time) []domain.TenantStats {
	out := make([]domain.TenantStats, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, domain.TenantStats{
			Tenant:       t.cfg.Name,
			QueueDepth:   t.queue.Depth(),
			SentInWindow: t.window.CountSince(now.Add(-t.cfg.Window)),
			Limit:        t.cfg.Limit,
		})
	}
	return out
}

// Logs returns the activity snapshot, oldest first.
func (d *Dispatcher) Logs() []domain.LogEntry {
	return d.activity.Snapshot()
}

// Depth reports one tenant's current queue depth (brand routing rules
// apply).
func (d *Dispatcher) Depth(brand string) int {
	return d.route(brand).queue.Depth()
}
