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
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/mailbox"
	"github.com/tochemey/skyrun/module"
)

// serviceState is the lifecycle stage of a service.
type serviceState int

const (
	// Init is running
	stateInitialising serviceState = iota
	// Init succeeded and the mailbox is published
	statePublished
	// killed while Init was running
	stateKilled
	// Init failed or the service was killed before being published
	stateFailed
)

// service is a spawned module instance together with its mailbox.
// It is also the module.Context handed to the instance.
type service struct {
	// mu guards state. It is never held while calling the instance.
	mu    sync.Mutex
	state serviceState

	handle   uint32
	module   string
	instance module.Instance
	mailbox  *mailbox.Mailbox
	engine   *Engine
	logger   log.Logger
	session  atomic.Int32
}

var _ module.Context = (*service)(nil)

func newService(engine *Engine, h uint32, name string, instance module.Instance) *service {
	return &service{
		handle:   h,
		module:   name,
		instance: instance,
		mailbox:  mailbox.New(h, engine.queue, mailbox.WithCapacity(engine.mailboxCapacity)),
		engine:   engine,
		logger:   engine.logger.With("service", fmt.Sprintf(":%08x", h), "module", name),
	}
}

// Self returns the service handle.
func (s *service) Self() uint32 {
	return s.handle
}

// Send delivers a message from this service.
func (s *service) Send(destination uint32, typ mailbox.MessageType, session int32, payload []byte) error {
	return s.engine.Send(s.handle, destination, typ, session, payload)
}

// SendName delivers a message from this service to a named service.
func (s *service) SendName(name string, typ mailbox.MessageType, session int32, payload []byte) error {
	return s.engine.SendName(s.handle, name, typ, session, payload)
}

// Spawn launches another service.
func (s *service) Spawn(name, param string) (uint32, error) {
	return s.engine.Spawn(context.Background(), name, param)
}

// Kill removes the service h, which may be this one.
func (s *service) Kill(h uint32) error {
	return s.engine.Kill(h)
}

// Logger returns the logger scoped to this service.
func (s *service) Logger() log.Logger {
	return s.logger
}

// Getenv reads the engine environment.
func (s *service) Getenv(key string) (string, bool) {
	return s.engine.env.Get(key)
}

// Errorf reports an error on behalf of this service.
func (s *service) Errorf(format string, args ...any) {
	s.engine.Errorf(s.handle, format, args...)
}

// nextSession returns a positive session id, wrapping around before overflow.
func (s *service) nextSession() int32 {
	for {
		session := s.session.Inc()
		if session > 0 {
			return session
		}
		s.session.CompareAndSwap(session, 0)
	}
}

// initialize runs the instance Init, turning a panic into an error.
func (s *service) initialize(param string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init panicked: %v", r)
		}
	}()
	return s.instance.Init(s, param)
}

// receive runs the instance handler, recovering from a panic. It reports
// whether the handler returned normally.
func (s *service) receive(msg *mailbox.Message) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("handler panicked on %s message from :%08x: %v", msg.Type, msg.Source, r)
			ok = false
		}
	}()
	s.instance.Receive(s, msg)
	return true
}
