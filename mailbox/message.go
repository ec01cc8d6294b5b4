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

import "strconv"

// MessageType tags a message with its protocol class.
type MessageType uint8

const (
	// MessageTypeText carries plain text, e.g. log lines sent to the logger service.
	MessageTypeText MessageType = iota
	// MessageTypeResponse carries the reply to a request identified by its session.
	MessageTypeResponse
	// MessageTypeRequest carries a request that expects a response.
	MessageTypeRequest
	// MessageTypeSystem carries runtime control messages.
	MessageTypeSystem
	// MessageTypeError notifies the sender that a message could not be delivered.
	MessageTypeError
)

// String returns the string representation of MessageType.
func (t MessageType) String() string {
	switch t {
	case MessageTypeText:
		return "text"
	case MessageTypeResponse:
		return "response"
	case MessageTypeRequest:
		return "request"
	case MessageTypeSystem:
		return "system"
	case MessageTypeError:
		return "error"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

// Message is the unit of communication between services.
// The payload is owned by the mailbox from Push until Pop, then by the consumer.
type Message struct {
	// Source is the handle of the sending service, zero when sent by the runtime.
	Source uint32
	// Session correlates a request with its response.
	Session int32
	// Type is the protocol class of the message.
	Type MessageType
	// Payload is the opaque message body.
	Payload []byte
}

// Size returns the payload size in bytes.
func (m Message) Size() int {
	return len(m.Payload)
}
