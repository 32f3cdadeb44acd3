// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"sync"
)

// errQueueClosed is returned when work is posted after Close.
var errQueueClosed = errors.New("session: controller closed")

// mainQueue runs posted functions one at a time on a single goroutine.
// The backlog is unbounded so a task may post follow-up work without blocking.
type mainQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	running bool
	closed  bool
	done    chan struct{}
}

func newMainQueue() *mainQueue {
	q := &mainQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *mainQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			q.cond.Broadcast()
			return
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.running = true
		q.mu.Unlock()

		fn()

		q.mu.Lock()
		q.running = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// post enqueues fn. It reports false after close.
func (q *mainQueue) post(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.cond.Broadcast()
	return true
}

// sync runs fn on the queue and waits for it to return.
// It must not be called from a task running on the queue.
func (q *mainQueue) sync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !q.post(func() {
		defer close(finished)
		fn()
	}) {
		return errQueueClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return errQueueClosed
	}
}

// waitIdle blocks until no task is queued or running.
func (q *mainQueue) waitIdle(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		q.mu.Lock()
		for len(q.tasks) > 0 || q.running {
			q.cond.Wait()
		}
		q.mu.Unlock()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting work. Already queued tasks still run.
func (q *mainQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
