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
	"context"
	"sync"
	"time"

	"github.com/tochemey/skyrun/internal/ticker"
	"github.com/tochemey/skyrun/log"
)

// DefaultInterval is the default pause between two checks.
const DefaultInterval = 5 * time.Second

// Watchdog owns one Monitor per worker and checks them periodically.
type Watchdog struct {
	monitors []*Monitor
	interval time.Duration
	logger   log.Logger
	sink     Sink

	mu      sync.Mutex
	ticker  *ticker.Ticker
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a Watchdog with the given number of monitors.
func New(workers int, opts ...Option) *Watchdog {
	if workers <= 0 {
		panic("watchdog: workers must be greater than zero")
	}

	w := &Watchdog{
		monitors: make([]*Monitor, workers),
		interval: DefaultInterval,
		logger:   log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(w)
	}

	if w.sink == nil {
		w.sink = LogSink(w.logger)
	}

	for i := range w.monitors {
		w.monitors[i] = new(Monitor)
	}
	return w
}

// Monitor returns the monitor of worker i.
func (w *Watchdog) Monitor(i int) *Monitor {
	return w.monitors[i]
}

// Size returns the number of monitors.
func (w *Watchdog) Size() int {
	return len(w.monitors)
}

// Check checks every monitor once, forwards the stalls to the sink and
// returns them.
func (w *Watchdog) Check() []Stall {
	var stalls []Stall
	for _, monitor := range w.monitors {
		if stall, ok := monitor.Check(); ok {
			w.sink.Stalled(stall)
			stalls = append(stalls, stall)
		}
	}
	return stalls
}

// Start runs the supervisor loop until Stop is called or ctx is done.
// Calling Start on a running watchdog is a no-op.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	w.running = true
	w.ticker = ticker.New(w.interval)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.ticker.Start()

	go w.loop(ctx, w.ticker, w.stopCh, w.doneCh)
	w.logger.Debugf("watchdog started with %d monitors every %s", len(w.monitors), w.interval)
}

// Stop stops the supervisor loop and waits for it to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	w.running = false
	close(w.stopCh)
	<-w.doneCh
	w.ticker.Stop()
	w.logger.Debug("watchdog stopped")
}

func (w *Watchdog) loop(ctx context.Context, tick *ticker.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-tick.Ticks:
			w.Check()
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
