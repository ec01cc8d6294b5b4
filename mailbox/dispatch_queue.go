/*
 * MIT License
 *
 * Copyright (c) 2022-2025 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package mailbox

import (
	"context"
	"sync"
)

const initialDispatchSize = 64

// DispatchQueue is the FIFO of mailboxes that have pending messages and are
// waiting for a worker. Every critical section is a constant-time slot
// update, so a single lock is shared by all producers and workers.
//
// A mailbox appears at most once: pushing a mailbox that is already linked
// panics, since it would be dispatched twice.
type DispatchQueue struct {
	mu    sync.Mutex
	ring  []*Mailbox
	head  int
	count int
	wake  chan struct{}
}

// NewDispatchQueue creates an empty DispatchQueue.
func NewDispatchQueue() *DispatchQueue {
	return &DispatchQueue{
		ring: make([]*Mailbox, initialDispatchSize),
		wake: make(chan struct{}, 1),
	}
}

// Push links mb at the tail of the queue and wakes an idle worker.
func (q *DispatchQueue) Push(mb *Mailbox) {
	q.mu.Lock()
	if mb.linked {
		q.mu.Unlock()
		panic("mailbox: mailbox already linked into the dispatch queue")
	}

	if q.count == len(q.ring) {
		q.grow()
	}

	mb.linked = true
	q.ring[(q.head+q.count)%len(q.ring)] = mb
	q.count++
	q.mu.Unlock()

	q.notify()
}

// Pop unlinks and returns the mailbox at the head of the queue, or nil when
// the queue is empty.
func (q *DispatchQueue) Pop() *Mailbox {
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return nil
	}

	mb := q.ring[q.head]
	q.ring[q.head] = nil
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	mb.linked = false
	remaining := q.count
	q.mu.Unlock()

	// pass the wake-up on so that other idle workers pick up the rest
	if remaining > 0 {
		q.notify()
	}
	return mb
}

// Len returns the number of linked mailboxes.
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Wait blocks until a mailbox may be available or ctx is done.
// Wake-ups can be spurious; callers Pop again and Wait when it returns nil.
func (q *DispatchQueue) Wait(ctx context.Context) error {
	select {
	case <-q.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *DispatchQueue) isLinked(mb *Mailbox) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return mb.linked
}

func (q *DispatchQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *DispatchQueue) grow() {
	ring := make([]*Mailbox, len(q.ring)*2)
	for i := range q.count {
		ring[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = ring
	q.head = 0
}
