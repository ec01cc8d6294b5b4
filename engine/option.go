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
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/skyrun/env"
	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/module"
	"github.com/tochemey/skyrun/watchdog"
)

// Option configures an Engine.
type Option interface {
	// Apply sets the Option value of an Engine.
	Apply(*Engine)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Engine)

// Apply applies the option.
func (f OptionFunc) Apply(e *Engine) {
	f(e)
}

// WithWorkers sets the size of the worker pool. Non-positive values are ignored.
func WithWorkers(workers int) Option {
	return OptionFunc(func(e *Engine) {
		if workers > 0 {
			e.workers = workers
		}
	})
}

// WithLogger sets the engine logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	})
}

// WithRegistry sets the module registry used by Spawn.
func WithRegistry(registry *module.Registry) Option {
	return OptionFunc(func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	})
}

// WithEnv sets the environment shared by services.
func WithEnv(store *env.Store) Option {
	return OptionFunc(func(e *Engine) {
		if store != nil {
			e.env = store
		}
	})
}

// WithWatchdogInterval sets how often the watchdog checks the workers.
func WithWatchdogInterval(interval time.Duration) Option {
	return OptionFunc(func(e *Engine) {
		if interval > 0 {
			e.watchdogInterval = interval
		}
	})
}

// WithMailboxCapacity sets the initial capacity of every service mailbox.
func WithMailboxCapacity(capacity int) Option {
	return OptionFunc(func(e *Engine) {
		if capacity > 0 {
			e.mailboxCapacity = capacity
		}
	})
}

// WithMetrics enables the runtime instruments on the given MeterProvider.
func WithMetrics(provider otelmetric.MeterProvider) Option {
	return OptionFunc(func(e *Engine) {
		e.meterProvider = provider
	})
}

// WithInitRetries sets how many times a failing Init is attempted and the
// time budget of the whole initialisation.
func WithInitRetries(retries int, timeout time.Duration) Option {
	return OptionFunc(func(e *Engine) {
		if retries > 0 {
			e.initMaxRetries = retries
		}
		if timeout > 0 {
			e.initTimeout = timeout
		}
	})
}

// WithStallSink adds a sink notified of every watchdog stall, on top of
// the engine's own bookkeeping.
func WithStallSink(sink watchdog.Sink) Option {
	return OptionFunc(func(e *Engine) {
		e.stallSink = sink
	})
}

// WithStallHistory sets how many recent stalls the engine keeps for Stalls.
// The size is rounded up to a power of two.
func WithStallHistory(size uint64) Option {
	return OptionFunc(func(e *Engine) {
		if size > 0 {
			e.stallHistory = size
		}
	})
}

// WithHarbor sets the node id stamped in the high bits of every handle.
func WithHarbor(harbor uint8) Option {
	return OptionFunc(func(e *Engine) {
		e.harbor = harbor
	})
}
