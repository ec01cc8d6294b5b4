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

package watchdog

import (
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	"github.com/tochemey/skyrun/log"
)

// Sink receives the stalls found by the watchdog.
type Sink interface {
	Stalled(stall Stall)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(stall Stall)

// Stalled calls f(stall).
func (f SinkFunc) Stalled(stall Stall) {
	f(stall)
}

// LogSink writes every stall as an error entry.
func LogSink(logger log.Logger) Sink {
	return SinkFunc(func(stall Stall) {
		logger.Errorf("A message from [ :%08x ] to [ :%08x ] maybe in an endless loop (version = %d)",
			stall.Source, stall.Destination, stall.Version)
	})
}

// RingSink keeps the most recent stalls in a bounded ring for later
// inspection. When the ring is full the oldest stall is evicted.
type RingSink struct {
	ring    *queue.RingBuffer
	evicted atomic.Uint64
}

var _ Sink = (*RingSink)(nil)

// NewRingSink creates a RingSink. The capacity is rounded up to a power of two.
func NewRingSink(capacity uint64) *RingSink {
	return &RingSink{ring: queue.NewRingBuffer(capacity)}
}

// Stalled records the stall without blocking the caller.
func (s *RingSink) Stalled(stall Stall) {
	for {
		ok, err := s.ring.Offer(stall)
		if ok || err != nil {
			return
		}
		if _, err := s.ring.Poll(time.Millisecond); err == nil {
			s.evicted.Inc()
		}
	}
}

// Drain removes and returns the recorded stalls, oldest first.
func (s *RingSink) Drain() []Stall {
	var stalls []Stall
	for s.ring.Len() > 0 {
		item, err := s.ring.Poll(time.Millisecond)
		if err != nil {
			break
		}
		stalls = append(stalls, item.(Stall))
	}
	return stalls
}

// Len returns the number of recorded stalls.
func (s *RingSink) Len() int {
	return int(s.ring.Len())
}

// Evicted returns how many stalls were pushed out by newer ones.
func (s *RingSink) Evicted() uint64 {
	return s.evicted.Load()
}

// Close disposes the ring. Stalls reported afterwards are ignored.
func (s *RingSink) Close() {
	s.ring.Dispose()
}
