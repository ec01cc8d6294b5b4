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

// Option is the interface that applies a Mailbox option.
type Option interface {
	// Apply sets the Option value of a Mailbox.
	Apply(mb *Mailbox)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(mb *Mailbox)

// Apply applies the Mailbox's option
func (f OptionFunc) Apply(mb *Mailbox) {
	f(mb)
}

// WithCapacity sets the initial size of the ring buffer.
// Non-positive values are ignored.
func WithCapacity(capacity int) Option {
	return OptionFunc(func(mb *Mailbox) {
		if capacity > 0 {
			mb.ring = make([]Message, capacity)
		}
	})
}

// WithOverloadThreshold sets the backlog length above which Push reports an
// overload, and to which the threshold resets once the mailbox drains.
// Non-positive values are ignored.
func WithOverloadThreshold(threshold int) Option {
	return OptionFunc(func(mb *Mailbox) {
		if threshold > 0 {
			mb.defaultThreshold = threshold
		}
	})
}
