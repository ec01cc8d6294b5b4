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

package metric

import "go.opentelemetry.io/otel/metric"

// RuntimeMetric groups the instruments describing the scheduler.
//
// Instruments:
//   - runtime.messages.dispatched  (Int64Counter)
//   - runtime.messages.dropped     (Int64Counter)
//   - runtime.mailbox.overloads    (Int64Counter)
//   - runtime.watchdog.stalls      (Int64Counter)
//   - runtime.services.count       (Int64ObservableGauge)
//   - runtime.dispatchqueue.length (Int64ObservableGauge)
type RuntimeMetric struct {
	dispatched    metric.Int64Counter
	dropped       metric.Int64Counter
	overloads     metric.Int64Counter
	stalls        metric.Int64Counter
	services      metric.Int64ObservableGauge
	dispatchQueue metric.Int64ObservableGauge
}

// NewRuntimeMetric creates the instruments using the provided Meter.
// It returns an error if any instrument cannot be created.
func NewRuntimeMetric(meter metric.Meter) (*RuntimeMetric, error) {
	var (
		instruments RuntimeMetric
		err         error
	)

	if instruments.dispatched, err = meter.Int64Counter(
		"runtime.messages.dispatched",
		metric.WithDescription("Total number of messages handed to service handlers"),
	); err != nil {
		return nil, err
	}

	if instruments.dropped, err = meter.Int64Counter(
		"runtime.messages.dropped",
		metric.WithDescription("Total number of messages dropped by released mailboxes"),
	); err != nil {
		return nil, err
	}

	if instruments.overloads, err = meter.Int64Counter(
		"runtime.mailbox.overloads",
		metric.WithDescription("Total number of mailbox overload signals"),
	); err != nil {
		return nil, err
	}

	if instruments.stalls, err = meter.Int64Counter(
		"runtime.watchdog.stalls",
		metric.WithDescription("Total number of stalls reported by the watchdog"),
	); err != nil {
		return nil, err
	}

	if instruments.services, err = meter.Int64ObservableGauge(
		"runtime.services.count",
		metric.WithDescription("Number of live services"),
	); err != nil {
		return nil, err
	}

	if instruments.dispatchQueue, err = meter.Int64ObservableGauge(
		"runtime.dispatchqueue.length",
		metric.WithDescription("Number of mailboxes waiting for a worker"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// Dispatched counts messages delivered to handlers.
func (x *RuntimeMetric) Dispatched() metric.Int64Counter {
	return x.dispatched
}

// Dropped counts messages handed to the drop policy.
func (x *RuntimeMetric) Dropped() metric.Int64Counter {
	return x.dropped
}

// Overloads counts mailbox overload signals.
func (x *RuntimeMetric) Overloads() metric.Int64Counter {
	return x.overloads
}

// Stalls counts watchdog stall reports.
func (x *RuntimeMetric) Stalls() metric.Int64Counter {
	return x.stalls
}

// Services observes the number of live services.
// Use with Meter.RegisterCallback.
func (x *RuntimeMetric) Services() metric.Int64ObservableGauge {
	return x.services
}

// DispatchQueue observes the dispatch queue length.
// Use with Meter.RegisterCallback.
func (x *RuntimeMetric) DispatchQueue() metric.Int64ObservableGauge {
	return x.dispatchQueue
}
