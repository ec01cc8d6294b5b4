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

// Package engine runs services on a fixed pool of workers.
//
// Each service owns a mailbox. Sending a message pushes it into the
// destination mailbox, which links itself into the shared dispatch queue
// when it was idle. Workers pop ready mailboxes and hand a batch of
// messages to the service before moving on, so a busy service cannot
// starve the others. A watchdog samples the workers and flags services
// that keep a worker on the same message for too long.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/skyrun/env"
	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/handle"
	"github.com/tochemey/skyrun/internal/metric"
	"github.com/tochemey/skyrun/internal/xsync"
	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/mailbox"
	"github.com/tochemey/skyrun/module"
	"github.com/tochemey/skyrun/watchdog"
)

const (
	// DefaultWorkers is the default size of the worker pool.
	DefaultWorkers = 8
	// DefaultInitMaxRetries is the default number of Init attempts.
	DefaultInitMaxRetries = 1
	// DefaultInitTimeout is the default time budget of a service Init.
	DefaultInitTimeout = time.Second
	// LoggerName is the name of the service receiving Errorf reports.
	LoggerName = "logger"
	// DefaultStallHistory is the default number of recent stalls kept by the engine.
	DefaultStallHistory = 64
)

var errKilledDuringInit = stderrors.New("killed during init")

// Stats is a snapshot of the engine state.
type Stats struct {
	// Workers is the size of the worker pool.
	Workers int
	// Services is the number of live services.
	Services int
	// Releasing is the number of killed services whose mailbox is not drained yet.
	Releasing int
	// Ready is the number of mailboxes waiting for a worker.
	Ready int
	// Pending is the number of messages queued in live mailboxes.
	Pending int
	// Stalls is the number of recent watchdog stalls not yet read with Stalls.
	Stalls int
}

// Engine schedules services onto workers.
type Engine struct {
	id               uuid.UUID
	workers          int
	logger           log.Logger
	registry         *module.Registry
	env              *env.Store
	watchdogInterval time.Duration
	mailboxCapacity  int
	initMaxRetries   int
	initTimeout      time.Duration
	stallSink        watchdog.Sink
	stallHistory     uint64
	harbor           uint8
	meterProvider    otelmetric.MeterProvider

	services *handle.Table[*service]
	// killed services waiting for a worker to drain their mailbox
	zombies  *xsync.Map[uint32, *service]
	queue    *mailbox.DispatchQueue
	watchdog *watchdog.Watchdog
	stalls   *watchdog.RingSink

	// endlessMu makes the read-and-clear of Endless atomic
	endlessMu sync.Mutex
	endless   goset.Set[uint32]

	metric       *metric.RuntimeMetric
	registration otelmetric.Registration

	mu      sync.Mutex
	started atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New creates a stopped Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:               uuid.New(),
		workers:          DefaultWorkers,
		logger:           log.DefaultLogger,
		watchdogInterval: watchdog.DefaultInterval,
		mailboxCapacity:  mailbox.DefaultCapacity,
		initMaxRetries:   DefaultInitMaxRetries,
		initTimeout:      DefaultInitTimeout,
		stallHistory:     DefaultStallHistory,
		queue:            mailbox.NewDispatchQueue(),
		zombies:          xsync.NewMap[uint32, *service](),
		endless:          goset.NewThreadUnsafeSet[uint32](),
	}

	for _, opt := range opts {
		opt.Apply(e)
	}

	e.logger = e.logger.With("engine", e.id.String())
	if e.registry == nil {
		e.registry = module.NewRegistry(module.WithLogger(e.logger))
	}

	if e.env == nil {
		e.env = env.New()
	}

	e.services = handle.NewTable[*service](handle.WithHarbor(e.harbor))
	e.stalls = watchdog.NewRingSink(e.stallHistory)
	e.watchdog = watchdog.New(e.workers,
		watchdog.WithInterval(e.watchdogInterval),
		watchdog.WithLogger(e.logger),
		watchdog.WithSink(watchdog.SinkFunc(e.stalled)))
	return e
}

// ID returns the unique id of the engine. It tags every log entry of the engine.
func (e *Engine) ID() string {
	return e.id.String()
}

// Registry returns the module registry.
func (e *Engine) Registry() *module.Registry {
	return e.registry
}

// Env returns the environment store.
func (e *Engine) Env() *env.Store {
	return e.env
}

// Logger returns the engine logger.
func (e *Engine) Logger() log.Logger {
	return e.logger
}

// Running reports whether the engine is started.
func (e *Engine) Running() bool {
	return e.started.Load()
}

// Start starts the workers and the watchdog. The engine runs until Stop;
// cancelling ctx afterwards has no effect.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started.Load() {
		return errors.ErrEngineStarted
	}

	if e.meterProvider != nil {
		if err := e.registerMetrics(); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)
	for i := range e.workers {
		group.Go(func() error {
			return e.work(groupCtx, i)
		})
	}

	e.watchdog.Start(runCtx)
	e.cancel = cancel
	e.group = group
	e.started.Store(true)
	e.logger.Infof("engine started with %d workers", e.workers)
	return nil
}

// Stop stops the workers, kills every service and drops the messages
// left in their mailboxes. It returns once the workers are gone or ctx
// is done, whichever comes first.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started.Load() {
		return errors.ErrEngineNotStarted
	}

	e.started.Store(false)
	e.watchdog.Stop()
	e.cancel()

	done := make(chan error, 1)
	go func() { done <- e.group.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		return fmt.Errorf("workers did not stop: %w", ctx.Err())
	}

	for _, svc := range e.services.RetireAll() {
		e.retire(svc)
	}

	// nothing else dispatches now: release every mailbox left in the queue
	for mb := e.queue.Pop(); mb != nil; mb = e.queue.Pop() {
		// spawned while stopping
		if svc, ok := e.services.Retire(mb.Owner()); ok {
			e.retire(svc)
		}
		e.reap(mb)
	}

	if e.registration != nil {
		err = multierr.Append(err, e.registration.Unregister())
		e.registration = nil
	}

	e.logger.Info("engine stopped")
	return multierr.Append(err, e.logger.Flush())
}

// Spawn creates a service from the module named name and initialises it
// with param. Messages sent to the service while Init runs are delivered
// once Init succeeds. On failure, or when the service is killed while Init
// runs, the service is removed and its pending messages are dropped.
func (e *Engine) Spawn(ctx context.Context, name, param string) (uint32, error) {
	if !e.started.Load() {
		return 0, errors.ErrEngineNotStarted
	}

	m, err := e.registry.Query(name)
	if err != nil {
		return 0, errors.NewSpawnError(name, err)
	}

	instance := m.Create()
	var svc *service
	h := e.services.RegisterFunc(func(h uint32) *service {
		svc = newService(e, h, name, instance)
		return svc
	})

	initCtx, cancel := context.WithTimeout(ctx, e.initTimeout)
	defer cancel()

	retrier := retry.NewRetrier(e.initMaxRetries, time.Millisecond, e.initTimeout)
	err = retrier.RunContext(initCtx, func(context.Context) error {
		return svc.initialize(param)
	})

	svc.mu.Lock()
	if err == nil && svc.state == stateKilled {
		err = errKilledDuringInit
	}
	if err != nil {
		svc.state = stateFailed
		svc.mu.Unlock()

		e.services.Retire(h)
		svc.mailbox.MarkRelease()
		svc.mailbox.Release(e.dropper(h))
		svc.instance.Release()
		e.logger.Errorf("FAILED launch %s %s: %v", name, param, err)
		return 0, errors.NewSpawnError(name, fmt.Errorf("%w: %w", errors.ErrInitFailure, err))
	}

	svc.state = statePublished
	svc.mailbox.Publish()
	svc.mu.Unlock()
	e.logger.Infof("LAUNCH %s %s as :%08x", name, param, h)
	return h, nil
}

// Kill removes the service. Its handle stops resolving at once; messages
// already queued are dropped by a worker, which then releases the instance.
func (e *Engine) Kill(h uint32) error {
	svc, ok := e.services.Retire(h)
	if !ok {
		return fmt.Errorf("%w: :%08x", errors.ErrServiceNotFound, h)
	}

	e.retire(svc)
	e.logger.Debugf("KILL :%08x", h)
	return nil
}

// Name binds name to the service h.
func (e *Engine) Name(h uint32, name string) error {
	return e.services.SetName(name, h)
}

// Lookup returns the service bound to name.
func (e *Engine) Lookup(name string) (uint32, bool) {
	return e.services.FindName(name)
}

// Send pushes a message into the mailbox of destination.
func (e *Engine) Send(source, destination uint32, typ mailbox.MessageType, session int32, payload []byte) error {
	if !e.started.Load() {
		return errors.ErrEngineNotStarted
	}

	if destination == 0 {
		return errors.ErrInvalidHandle
	}
	return e.push(destination, mailbox.Message{
		Source:  source,
		Session: session,
		Type:    typ,
		Payload: payload,
	})
}

// SendName pushes a message into the mailbox of the service bound to name.
func (e *Engine) SendName(source uint32, name string, typ mailbox.MessageType, session int32, payload []byte) error {
	destination, ok := e.services.FindName(name)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrServiceNotFound, name)
	}
	return e.Send(source, destination, typ, session, payload)
}

// NewSession allocates a session id for requests sent by h.
func (e *Engine) NewSession(h uint32) (int32, error) {
	svc, ok := e.services.Get(h)
	if !ok {
		return 0, fmt.Errorf("%w: :%08x", errors.ErrServiceNotFound, h)
	}
	return svc.nextSession(), nil
}

// Signal calls the Signal method of the service h. It does not go
// through the mailbox.
func (e *Engine) Signal(h uint32, sig int) error {
	svc, ok := e.services.Get(h)
	if !ok {
		return fmt.Errorf("%w: :%08x", errors.ErrServiceNotFound, h)
	}
	svc.instance.Signal(sig)
	return nil
}

// Errorf sends a text report on behalf of source to the logger service,
// or writes it to the engine logger when there is none.
func (e *Engine) Errorf(source uint32, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if h, ok := e.services.FindName(LoggerName); ok {
		if err := e.Send(source, h, mailbox.MessageTypeText, 0, []byte(text)); err == nil {
			return
		}
	}
	e.logger.Errorf("[:%08x] %s", source, text)
}

// Endless reports whether the watchdog flagged h since the previous call.
func (e *Engine) Endless(h uint32) bool {
	e.endlessMu.Lock()
	defer e.endlessMu.Unlock()

	if !e.endless.Contains(h) {
		return false
	}
	e.endless.Remove(h)
	return true
}

// Stalls returns the most recent watchdog stalls, oldest first, and
// forgets them. Older stalls are evicted once the history is full.
func (e *Engine) Stalls() []watchdog.Stall {
	return e.stalls.Drain()
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	stats := Stats{
		Workers:   e.workers,
		Releasing: e.zombies.Len(),
		Ready:     e.queue.Len(),
		Stalls:    e.stalls.Len(),
	}

	for _, h := range e.services.Handles() {
		if svc, ok := e.services.Get(h); ok {
			stats.Services++
			stats.Pending += svc.mailbox.Len()
		}
	}
	return stats
}

// push delivers msg to the mailbox of destination.
func (e *Engine) push(destination uint32, msg mailbox.Message) error {
	svc, ok := e.services.Get(destination)
	if !ok {
		return fmt.Errorf("%w: :%08x", errors.ErrServiceNotFound, destination)
	}

	if overload := svc.mailbox.Push(msg); overload > 0 && e.metric != nil {
		e.metric.Overloads().Add(context.Background(), 1)
	}
	return nil
}

// retire marks the mailbox of an already retired service for release.
// A service still running Init is only flagged: Spawn cleans it up once
// Init returns.
func (e *Engine) retire(svc *service) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	switch svc.state {
	case stateInitialising:
		svc.state = stateKilled
	case statePublished:
		e.zombies.Set(svc.handle, svc)
		svc.mailbox.MarkRelease()
	}
}

// reap releases the mailbox of a retired service. It must be called with
// the drain rights of mb.
func (e *Engine) reap(mb *mailbox.Mailbox) {
	owner := mb.Owner()
	if !mb.Release(e.dropper(owner)) {
		// retired but not marked yet: mb is back in the queue
		return
	}

	if svc, ok := e.zombies.Delete(owner); ok {
		svc.instance.Release()
	}

	e.endlessMu.Lock()
	e.endless.Remove(owner)
	e.endlessMu.Unlock()
}

// dropper returns the drop policy of the mailbox owned by owner: every
// dropped message is answered with an error message to its sender.
func (e *Engine) dropper(owner uint32) mailbox.DropFunc {
	return func(msg mailbox.Message) {
		if e.metric != nil {
			e.metric.Dropped().Add(context.Background(), 1)
		}

		if msg.Source == 0 || msg.Type == mailbox.MessageTypeError {
			return
		}

		_ = e.push(msg.Source, mailbox.Message{
			Source:  owner,
			Session: msg.Session,
			Type:    mailbox.MessageTypeError,
		})
	}
}

// stalled records a watchdog stall.
func (e *Engine) stalled(stall watchdog.Stall) {
	if _, ok := e.services.Get(stall.Destination); ok {
		e.endlessMu.Lock()
		e.endless.Add(stall.Destination)
		e.endlessMu.Unlock()
	}
	e.stalls.Stalled(stall)

	if e.metric != nil {
		e.metric.Stalls().Add(context.Background(), 1)
	}

	e.Errorf(0, "A message from [ :%08x ] to [ :%08x ] maybe in an endless loop (version = %d)",
		stall.Source, stall.Destination, stall.Version)

	if e.stallSink != nil {
		e.stallSink.Stalled(stall)
	}
}

func (e *Engine) registerMetrics() error {
	provider := metric.NewProvider(metric.WithMeterProvider(e.meterProvider))
	meter := provider.Meter()

	instruments, err := metric.NewRuntimeMetric(meter)
	if err != nil {
		return err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		observer.ObserveInt64(instruments.Services(), int64(e.services.Len()))
		observer.ObserveInt64(instruments.DispatchQueue(), int64(e.queue.Len()))
		return nil
	}, instruments.Services(), instruments.DispatchQueue())
	if err != nil {
		return err
	}

	e.metric = instruments
	e.registration = registration
	return nil
}
