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

// Package bench measures message throughput of the engine.
package bench

import (
	"context"
	"sync"

	"github.com/tochemey/skyrun/engine"
	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/mailbox"
	"github.com/tochemey/skyrun/module"
)

// Benchmarker counts down the messages it receives and answers requests.
type Benchmarker struct {
	Wg sync.WaitGroup
}

var _ module.Instance = (*Benchmarker)(nil)

// Init implements module.Instance.
func (p *Benchmarker) Init(module.Context, string) error {
	return nil
}

// Receive implements module.Instance.
func (p *Benchmarker) Receive(ctx module.Context, msg *mailbox.Message) {
	switch msg.Type {
	case mailbox.MessageTypeText:
		p.Wg.Done()
	case mailbox.MessageTypeRequest:
		_ = ctx.Send(msg.Source, mailbox.MessageTypeResponse, msg.Session, msg.Payload)
		p.Wg.Done()
	}
}

// Release implements module.Instance.
func (p *Benchmarker) Release() {}

// Signal implements module.Instance.
func (p *Benchmarker) Signal(int) {}

// Benchmark drives a number of senders against a set of Benchmarker services.
type Benchmark struct {
	engine        *engine.Engine
	workers       int
	senders       int
	messagesCount int

	mu      sync.Mutex
	actors  []*Benchmarker
	handles []uint32
}

// NewBenchmark creates a Benchmark where each of the senders sends
// messagesCount messages.
func NewBenchmark(workers, senders, messagesCount int) *Benchmark {
	return &Benchmark{
		workers:       workers,
		senders:       senders,
		messagesCount: messagesCount,
	}
}

// Start starts the engine and spawns one Benchmarker per sender.
func (b *Benchmark) Start(ctx context.Context) error {
	registry := module.NewRegistry(module.WithLogger(log.DiscardLogger))
	if err := registry.Register(module.ModuleFunc("benchmarker", func() module.Instance {
		b.mu.Lock()
		defer b.mu.Unlock()
		actor := new(Benchmarker)
		b.actors = append(b.actors, actor)
		return actor
	})); err != nil {
		return err
	}

	b.engine = engine.New(
		engine.WithLogger(log.DiscardLogger),
		engine.WithWorkers(b.workers),
		engine.WithRegistry(registry))

	if err := b.engine.Start(ctx); err != nil {
		return err
	}

	b.handles = make([]uint32, b.senders)
	for i := range b.senders {
		h, err := b.engine.Spawn(ctx, "benchmarker", "")
		if err != nil {
			return err
		}
		b.handles[i] = h
	}
	return nil
}

// Stop stops the engine.
func (b *Benchmark) Stop(ctx context.Context) error {
	return b.engine.Stop(ctx)
}

// BenchSend sends the messages concurrently and waits until all are handled.
func (b *Benchmark) BenchSend() error {
	return b.run(mailbox.MessageTypeText, 0)
}

// BenchRequest sends requests between Benchmarker services and waits until
// all of them are handled.
func (b *Benchmark) BenchRequest() error {
	return b.run(mailbox.MessageTypeRequest, 1)
}

func (b *Benchmark) run(typ mailbox.MessageType, session int32) error {
	b.mu.Lock()
	actors := b.actors
	b.mu.Unlock()
	for _, actor := range actors {
		actor.Wg.Add(b.messagesCount)
	}

	var (
		wg   sync.WaitGroup
		once sync.Once
		err  error
	)
	wg.Add(b.senders)
	for i := range b.senders {
		go func() {
			defer wg.Done()
			source := b.handles[(i+1)%len(b.handles)]
			for range b.messagesCount {
				if sendErr := b.engine.Send(source, b.handles[i], typ, session, nil); sendErr != nil {
					once.Do(func() { err = sendErr })
					return
				}
			}
		}()
	}
	wg.Wait()
	if err != nil {
		return err
	}

	for _, actor := range actors {
		actor.Wg.Wait()
	}
	return nil
}
