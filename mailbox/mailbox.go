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

// Package mailbox implements per-service message queues and the shared
// dispatch queue that hands ready mailboxes to workers.
//
// A Mailbox is an unbounded FIFO backed by a ring buffer that doubles when
// full. Any number of goroutines may Push concurrently. Pop is reserved to
// the single worker currently holding the mailbox's drain rights: the queued
// flag guarantees a mailbox is linked into the DispatchQueue at most once and
// stays unavailable to other workers until it has been observed empty.
package mailbox

import (
	"sync"
)

const (
	// DefaultCapacity is the initial size of the ring buffer.
	DefaultCapacity = 64
	// DefaultOverloadThreshold is the backlog length that triggers the first overload signal.
	DefaultOverloadThreshold = 1024
)

// DropFunc receives every message that is not delivered because its mailbox
// was released. It may be called from several goroutines at once.
type DropFunc func(msg Message)

// Mailbox is the message queue of one service.
type Mailbox struct {
	mu    sync.Mutex
	owner uint32
	queue *DispatchQueue

	ring []Message
	head int
	tail int

	// queued is true while the mailbox is linked into the dispatch queue or
	// being drained by a worker.
	queued    bool
	published bool
	release   bool
	released  bool
	drop      DropFunc

	overload         int
	threshold        int
	defaultThreshold int

	// linked is guarded by the dispatch queue lock.
	linked bool
}

// New creates the mailbox of the service identified by owner.
// The mailbox starts queued so that nothing can schedule it before the owner
// has finished initialising; call Publish once it has.
func New(owner uint32, queue *DispatchQueue, opts ...Option) *Mailbox {
	mb := &Mailbox{
		owner:            owner,
		queue:            queue,
		ring:             make([]Message, DefaultCapacity),
		queued:           true,
		defaultThreshold: DefaultOverloadThreshold,
	}

	for _, opt := range opts {
		opt.Apply(mb)
	}

	mb.threshold = mb.defaultThreshold
	return mb
}

// Owner returns the handle of the service owning the mailbox.
func (mb *Mailbox) Owner() uint32 {
	return mb.owner
}

// Publish links a freshly created mailbox into the dispatch queue once its
// owner is initialised. Messages pushed during initialisation become
// dispatchable from this point.
func (mb *Mailbox) Publish() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.published || !mb.queued || mb.release {
		panic("mailbox: publish of a mailbox that is not pending initialisation")
	}
	mb.published = true
	mb.queue.Push(mb)
}

// Push appends msg to the mailbox. It never blocks and never rejects.
//
// When the mailbox was idle it is linked into the dispatch queue. When the
// backlog exceeds the overload threshold the backlog length is returned as an
// advisory signal and the threshold doubles, so a growing backlog is reported
// once per doubling. Zero means no threshold was crossed.
//
// After Release, messages are handed to the release DropFunc instead.
func (mb *Mailbox) Push(msg Message) (overload int) {
	mb.mu.Lock()
	if mb.released {
		drop := mb.drop
		mb.mu.Unlock()
		drop(msg)
		return 0
	}

	mb.ring[mb.tail] = msg
	mb.tail++
	if mb.tail >= len(mb.ring) {
		mb.tail = 0
	}

	if mb.head == mb.tail {
		mb.grow()
	}

	if !mb.queued {
		mb.queued = true
		mb.queue.Push(mb)
	}

	if length := mb.length(); length > mb.threshold {
		overload = length
		mb.overload = length
		for length > mb.threshold {
			mb.threshold *= 2
		}
	}

	mb.mu.Unlock()
	return overload
}

// Pop removes the oldest message. It must only be called by the worker that
// holds the mailbox's drain rights.
//
// When the mailbox is found empty the drain rights are given up: the queued
// flag is cleared so the next Push links the mailbox again, and the overload
// threshold goes back to its default. A mailbox marked for release is linked
// back instead, so that a worker gets to Release it.
func (mb *Mailbox) Pop() (Message, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.head == mb.tail {
		mb.threshold = mb.defaultThreshold
		if mb.release && !mb.released {
			mb.queue.Push(mb)
			return Message{}, false
		}
		mb.queued = false
		return Message{}, false
	}

	msg := mb.ring[mb.head]
	mb.ring[mb.head] = Message{}
	mb.head++
	if mb.head >= len(mb.ring) {
		mb.head = 0
	}
	return msg, true
}

// Len returns the number of pending messages.
func (mb *Mailbox) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.length()
}

// Cap returns the current size of the ring buffer.
func (mb *Mailbox) Cap() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.ring)
}

// Overload returns the backlog length recorded by the last threshold
// crossing and clears it. Zero means no crossing since the previous call.
func (mb *Mailbox) Overload() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	overload := mb.overload
	mb.overload = 0
	return overload
}

// MarkRelease flags the mailbox for release once its owner has been retired.
// An idle mailbox is linked into the dispatch queue so that a worker
// eventually drains it. Marking twice panics.
func (mb *Mailbox) MarkRelease() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.release {
		panic("mailbox: release marked twice")
	}
	mb.release = true
	if !mb.queued {
		mb.queued = true
		mb.queue.Push(mb)
	}
}

// Release drains a mailbox marked for release, passing every pending message
// to drop, and reports true. Messages pushed afterwards are passed to drop
// as well. If the mailbox is not marked yet, it is linked back into the
// dispatch queue and false is returned: the mark is still on its way.
//
// Release must only be called by the worker holding the drain rights, or by
// the creator of a mailbox that was never published. Releasing a mailbox
// that is still linked into the dispatch queue panics.
func (mb *Mailbox) Release(drop DropFunc) bool {
	mb.mu.Lock()
	if mb.queue.isLinked(mb) {
		mb.mu.Unlock()
		panic("mailbox: release of a mailbox linked into the dispatch queue")
	}

	if !mb.release {
		mb.queue.Push(mb)
		mb.mu.Unlock()
		return false
	}

	if mb.released {
		mb.mu.Unlock()
		panic("mailbox: released twice")
	}

	pending := make([]Message, 0, mb.length())
	for mb.head != mb.tail {
		pending = append(pending, mb.ring[mb.head])
		mb.head++
		if mb.head >= len(mb.ring) {
			mb.head = 0
		}
	}

	mb.ring = nil
	mb.head, mb.tail = 0, 0
	mb.queued = false
	mb.released = true
	mb.drop = drop
	mb.mu.Unlock()

	for _, msg := range pending {
		drop(msg)
	}
	return true
}

// Released reports whether the mailbox has been drained by Release.
func (mb *Mailbox) Released() bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.released
}

func (mb *Mailbox) length() int {
	if mb.head <= mb.tail {
		return mb.tail - mb.head
	}
	return mb.tail + len(mb.ring) - mb.head
}

// grow doubles the ring, moving the entries starting at head to index 0.
// It is only called when the ring is full, i.e. head == tail after a push.
func (mb *Mailbox) grow() {
	size := len(mb.ring)
	ring := make([]Message, size*2)
	for i := range size {
		ring[i] = mb.ring[(mb.head+i)%size]
	}
	mb.ring = ring
	mb.head = 0
	mb.tail = size
}
