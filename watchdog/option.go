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

	"github.com/tochemey/skyrun/log"
)

// Option configures a Watchdog.
type Option interface {
	// Apply sets the Option value of a Watchdog.
	Apply(*Watchdog)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Watchdog)

// Apply applies the option.
func (f OptionFunc) Apply(w *Watchdog) {
	f(w)
}

// WithInterval sets the pause between two checks. Non-positive values are ignored.
func WithInterval(interval time.Duration) Option {
	return OptionFunc(func(w *Watchdog) {
		if interval > 0 {
			w.interval = interval
		}
	})
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(w *Watchdog) {
		if logger != nil {
			w.logger = logger
		}
	})
}

// WithSink sets where stalls are reported. Defaults to LogSink.
func WithSink(sink Sink) Option {
	return OptionFunc(func(w *Watchdog) {
		w.sink = sink
	})
}
