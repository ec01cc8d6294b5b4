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

// Package module defines what a service is made of and keeps the
// registry of known service types.
package module

import (
	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/mailbox"
)

// Module is a service type. Every spawned service gets its own Instance.
type Module interface {
	// Name is the unique module name used to spawn services.
	Name() string
	// Create returns a fresh, uninitialised instance.
	Create() Instance
}

// Instance is the behaviour of one running service.
type Instance interface {
	// Init is called once before the first message is delivered. Messages
	// sent to the service while Init runs are kept in its mailbox.
	Init(ctx Context, param string) error
	// Receive handles one message. It runs on a single worker at a time.
	Receive(ctx Context, msg *mailbox.Message)
	// Release is called once when the service is killed.
	Release()
	// Signal delivers an out-of-band signal.
	Signal(sig int)
}

// Context is the view of the runtime a service gets.
type Context interface {
	// Self returns the service handle.
	Self() uint32
	// Send delivers a message from this service to destination.
	Send(destination uint32, typ mailbox.MessageType, session int32, payload []byte) error
	// SendName delivers a message to the service bound to name.
	SendName(name string, typ mailbox.MessageType, session int32, payload []byte) error
	// Spawn launches a service from the module named name.
	Spawn(name, param string) (uint32, error)
	// Kill removes the service h, which may be the caller itself.
	Kill(h uint32) error
	// Logger returns the runtime logger scoped to this service.
	Logger() log.Logger
	// Getenv reads the shared environment.
	Getenv(key string) (string, bool)
	// Errorf reports a formatted error through the logger service.
	Errorf(format string, args ...any)
}

type module struct {
	name   string
	create func() Instance
}

// ModuleFunc builds a Module from a name and an instance constructor.
func ModuleFunc(name string, create func() Instance) Module {
	return &module{name: name, create: create}
}

func (m *module) Name() string      { return m.name }
func (m *module) Create() Instance { return m.create() }

// ReceiveFunc is an Instance made of a single message handler.
type ReceiveFunc func(ctx Context, msg *mailbox.Message)

var _ Instance = ReceiveFunc(nil)

// Init implements Instance.
func (f ReceiveFunc) Init(Context, string) error { return nil }

// Receive calls f(ctx, msg).
func (f ReceiveFunc) Receive(ctx Context, msg *mailbox.Message) { f(ctx, msg) }

// Release implements Instance.
func (f ReceiveFunc) Release() {}

// Signal implements Instance.
func (f ReceiveFunc) Signal(int) {}
