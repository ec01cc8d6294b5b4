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

// Package watchdog detects workers that stay on the same message for too long.
//
// Every worker owns a Monitor. The worker calls Trigger with the message's
// source and destination right before running a handler and Trigger(0, 0)
// right after. A low-frequency supervisor calls Check: a monitor whose
// version did not move since the previous Check while a destination is
// recorded is reported as a Stall. This only proves that no dispatch
// completed between two checks; the handler is never interrupted.
package watchdog

import (
	"go.uber.org/atomic"
)

// Stall describes a worker found on the same message at two consecutive checks.
type Stall struct {
	// Source is the sender of the message being handled.
	Source uint32
	// Destination is the service handling the message.
	Destination uint32
	// Version is the monitor version observed at both checks.
	Version uint32
}

// Monitor is the liveness slot of one worker. Trigger is called by the
// worker only; Check by the supervisor only.
type Monitor struct {
	version      atomic.Uint32
	checkVersion atomic.Uint32
	source       atomic.Uint32
	destination  atomic.Uint32
}

// Trigger records the message about to be dispatched and advances the
// version. The ids are stored before the version so that a checker that
// reads the new version also reads these ids.
func (m *Monitor) Trigger(source, destination uint32) {
	m.source.Store(source)
	m.destination.Store(destination)
	m.version.Inc()
}

// Check compares the version with the one seen at the previous Check.
// It reports a Stall when nothing was dispatched in between and a
// destination is recorded; otherwise it moves the baseline forward.
func (m *Monitor) Check() (Stall, bool) {
	version := m.version.Load()
	if version != m.checkVersion.Load() {
		m.checkVersion.Store(version)
		return Stall{}, false
	}

	destination := m.destination.Load()
	if destination == 0 {
		return Stall{}, false
	}

	return Stall{
		Source:      m.source.Load(),
		Destination: destination,
		Version:     version,
	}, true
}

// Version returns the number of triggers recorded so far.
func (m *Monitor) Version() uint32 {
	return m.version.Load()
}
