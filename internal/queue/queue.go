// Package queue provides the in-memory FIFO of pending send tasks, one
// instance per tenant. Producers (the submission API) append to the tail;
// the tenant's single dispatch worker peeks at and pops the head.
package queue

import (
	"sync"

	"mailhub/internal/domain"
)

type TenantQueue struct {
	mu    sync.Mutex
	tasks []domain.SendTask
}

func New() *TenantQueue {
	return &TenantQueue{}
}

// Enqueue appends a task to the tail. Never blocks, never fails.
func (q *TenantQueue) Enqueue(task domain.SendTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// Peek returns the head task without removing it, so a rate-limited task
// stays queued.
func (q *TenantQueue) Peek() (domain.SendTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return domain.SendTask{}, false
	}
	return q.tasks[0], true
}

// Pop removes the head once the worker has resolved it. No-op on an empty
// queue.
func (q *TenantQueue) Pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return
	}
	q.tasks = q.tasks[1:]
}

func (q *TenantQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
