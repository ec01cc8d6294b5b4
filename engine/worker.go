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

package engine

import (
	"context"

	"github.com/tochemey/skyrun/mailbox"
	"github.com/tochemey/skyrun/watchdog"
)

// weights sets how much of a mailbox backlog each worker handles per turn.
// -1 handles one message, w >= 0 handles len >> w messages. Workers beyond
// the table use 0.
var weights = [...]int{
	-1, -1, -1, -1, 0, 0, 0, 0,
	1, 1, 1, 1, 1, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2,
	3, 3, 3, 3, 3, 3, 3, 3,
}

func weight(worker int) int {
	if worker < len(weights) {
		return weights[worker]
	}
	return 0
}

// work is the loop of one worker. It only waits when the dispatch queue is
// empty and hands back the mailbox it holds when ctx is done.
func (e *Engine) work(ctx context.Context, worker int) error {
	monitor := e.watchdog.Monitor(worker)
	w := weight(worker)

	var mb *mailbox.Mailbox
	for {
		if ctx.Err() != nil {
			if mb != nil {
				e.queue.Push(mb)
			}
			return nil
		}

		if mb = e.dispatch(mb, w, monitor); mb == nil {
			if err := e.queue.Wait(ctx); err != nil {
				return nil
			}
		}
	}
}

// dispatch runs one turn on mb, or on the next ready mailbox when mb is nil,
// and returns the mailbox to run next. The returned mailbox is held by the
// caller and is not linked into the dispatch queue.
func (e *Engine) dispatch(mb *mailbox.Mailbox, weight int, monitor *watchdog.Monitor) *mailbox.Mailbox {
	if mb == nil {
		if mb = e.queue.Pop(); mb == nil {
			return nil
		}
	}

	owner := mb.Owner()
	svc, ok := e.services.Get(owner)
	if !ok {
		e.reap(mb)
		return e.queue.Pop()
	}

	n := 1
	for i := 0; i < n; i++ {
		msg, ok := mb.Pop()
		if !ok {
			return e.queue.Pop()
		}

		if i == 0 && weight >= 0 {
			n = mb.Len() >> weight
		}

		if overload := mb.Overload(); overload > 0 {
			svc.logger.Warnf("May overload, message queue length = %d", overload)
		}

		monitor.Trigger(msg.Source, owner)
		if svc.receive(&msg) && e.metric != nil {
			e.metric.Dispatched().Add(context.Background(), 1)
		}
		monitor.Trigger(0, 0)
	}

	// let another mailbox go first when there is one
	if next := e.queue.Pop(); next != nil {
		e.queue.Push(mb)
		return next
	}
	return mb
}
