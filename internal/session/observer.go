// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import "sync"

type observerEntry struct {
	id  int
	obs Observer
}

// hub keeps registered observers in registration order.
type hub struct {
	mu      sync.Mutex
	nextID  int
	entries []observerEntry
}

func (h *hub) add(o Observer) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.entries = append(h.entries, observerEntry{id: id, obs: o})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

// notify calls every observer outside the lock so observers may cancel themselves.
func (h *hub) notify(s Snapshot) {
	h.mu.Lock()
	list := make([]Observer, 0, len(h.entries))
	for _, e := range h.entries {
		list = append(list, e.obs)
	}
	h.mu.Unlock()

	for _, o := range list {
		o.SessionChanged(s)
	}
}

// chanObserver forwards snapshots to a buffered channel. When the reader falls
// behind the oldest pending snapshot is dropped, so the channel always ends with
// the latest state.
type chanObserver struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func newChanObserver(buffer int) *chanObserver {
	if buffer <= 0 {
		buffer = 1
	}
	return &chanObserver{ch: make(chan Snapshot, buffer)}
}

func (c *chanObserver) SessionChanged(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.ch <- s:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

func (c *chanObserver) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
