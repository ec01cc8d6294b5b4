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

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMailbox(t *testing.T) {
	t.Run("With new mailbox pre-queued", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		require.EqualValues(t, 1, mb.Owner())
		require.Equal(t, DefaultCapacity, mb.Cap())
		require.Zero(t, mb.Len())

		// messages sent while the owner initialises do not schedule the mailbox
		mb.Push(Message{Source: 2, Payload: []byte("early")})
		require.Zero(t, queue.Len())

		mb.Publish()
		require.Equal(t, 1, queue.Len())
		require.Same(t, mb, queue.Pop())

		msg, ok := mb.Pop()
		require.True(t, ok)
		require.Equal(t, "early", string(msg.Payload))
	})
	t.Run("With publish twice", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		assert.Panics(t, mb.Publish)
	})
	t.Run("With FIFO order", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		for i := range 10 {
			mb.Push(Message{Session: int32(i)})
		}
		require.Equal(t, 10, mb.Len())

		for i := range 10 {
			msg, ok := mb.Pop()
			require.True(t, ok)
			require.EqualValues(t, i, msg.Session)
		}

		_, ok := mb.Pop()
		require.False(t, ok)
	})
	t.Run("With empty pop giving up drain rights", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		require.Same(t, mb, queue.Pop())

		_, ok := mb.Pop()
		require.False(t, ok)
		require.Nil(t, queue.Pop())

		// the next push links it again
		mb.Push(Message{})
		require.Same(t, mb, queue.Pop())
		require.Nil(t, queue.Pop())
	})
	t.Run("With ring growth", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue, WithCapacity(8))
		require.Equal(t, 8, mb.Cap())

		for i := range 100 {
			mb.Push(Message{Session: int32(i)})
		}
		require.Equal(t, 128, mb.Cap())
		require.Equal(t, 100, mb.Len())

		for i := range 100 {
			msg, ok := mb.Pop()
			require.True(t, ok)
			require.EqualValues(t, i, msg.Session)
		}
		require.Zero(t, mb.Len())
		require.Equal(t, 128, mb.Cap())
	})
	t.Run("With ring growth at an exact multiple of the capacity", func(t *testing.T) {
		// a full ring is indistinguishable from an empty one, so filling it grows it
		mb := New(1, NewDispatchQueue())
		for i := range DefaultCapacity - 1 {
			mb.Push(Message{Session: int32(i)})
		}
		require.Equal(t, DefaultCapacity, mb.Cap())

		mb.Push(Message{Session: DefaultCapacity - 1})
		require.Equal(t, 2*DefaultCapacity, mb.Cap())

		for i := DefaultCapacity; i < 2*DefaultCapacity; i++ {
			mb.Push(Message{Session: int32(i)})
		}
		require.Equal(t, 4*DefaultCapacity, mb.Cap())
		require.Equal(t, 2*DefaultCapacity, mb.Len())

		for i := range 2 * DefaultCapacity {
			msg, ok := mb.Pop()
			require.True(t, ok)
			require.EqualValues(t, i, msg.Session)
		}
	})
	t.Run("With ring growth after wrap around", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue, WithCapacity(4))

		next := 0
		for range 3 {
			mb.Push(Message{Session: int32(next)})
			next++
		}
		expected := 0
		for range 2 {
			msg, ok := mb.Pop()
			require.True(t, ok)
			require.EqualValues(t, expected, msg.Session)
			expected++
		}
		// head is at index 2: the next pushes wrap and then fill the ring
		for range 6 {
			mb.Push(Message{Session: int32(next)})
			next++
		}
		require.Equal(t, 8, mb.Cap())
		require.Equal(t, next-expected, mb.Len())

		for expected < next {
			msg, ok := mb.Pop()
			require.True(t, ok)
			require.EqualValues(t, expected, msg.Session)
			expected++
		}
	})
	t.Run("With invalid options ignored", func(t *testing.T) {
		mb := New(1, NewDispatchQueue(), WithCapacity(0), WithOverloadThreshold(-1))
		require.Equal(t, DefaultCapacity, mb.Cap())
		require.Equal(t, DefaultOverloadThreshold, mb.threshold)
	})
}

func TestMailboxOverload(t *testing.T) {
	queue := NewDispatchQueue()
	mb := New(1, queue, WithOverloadThreshold(4))

	var signals []int
	push := func(n int) {
		for range n {
			if overload := mb.Push(Message{}); overload > 0 {
				signals = append(signals, overload)
			}
		}
	}

	push(4)
	require.Empty(t, signals)
	require.Zero(t, mb.Overload())

	push(1)
	require.Equal(t, []int{5}, signals)
	require.Equal(t, 8, mb.threshold)
	require.Equal(t, 5, mb.Overload())
	require.Zero(t, mb.Overload())

	push(3)
	require.Equal(t, []int{5}, signals)

	push(1)
	require.Equal(t, []int{5, 9}, signals)
	require.Equal(t, 16, mb.threshold)

	// draining to empty resets the threshold
	for {
		if _, ok := mb.Pop(); !ok {
			break
		}
	}
	require.Equal(t, 4, mb.threshold)

	signals = signals[:0]
	push(5)
	require.Equal(t, []int{5}, signals)
}

func TestMailboxScenario(t *testing.T) {
	queue := NewDispatchQueue()
	mb := New(7, queue)
	require.Equal(t, 64, mb.Cap())

	_, ok := mb.Pop()
	require.False(t, ok)

	mb.Push(Message{Payload: []byte("first")})
	require.Same(t, mb, queue.Pop())
	require.Nil(t, queue.Pop())

	msg, ok := mb.Pop()
	require.True(t, ok)
	require.Equal(t, "first", string(msg.Payload))
	_, ok = mb.Pop()
	require.False(t, ok)
	require.Nil(t, queue.Pop())

	for i := range 200 {
		mb.Push(Message{Session: int32(i)})
		switch {
		case i < 63:
			require.Equal(t, 64, mb.Cap())
		case i < 127:
			require.Equal(t, 128, mb.Cap())
		}
	}
	require.Equal(t, 256, mb.Cap())
	require.Same(t, mb, queue.Pop())
	require.Nil(t, queue.Pop())

	for i := range 200 {
		msg, ok := mb.Pop()
		require.True(t, ok)
		require.EqualValues(t, i, msg.Session)
	}
	_, ok = mb.Pop()
	require.False(t, ok)
}

func TestMailboxConcurrentProducers(t *testing.T) {
	const (
		producers   = 8
		perProducer = 2000
	)

	queue := NewDispatchQueue()
	mb := New(1, queue, WithCapacity(2))

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := range producers {
		go func(source uint32) {
			defer wg.Done()
			for i := range perProducer {
				mb.Push(Message{Source: source, Session: int32(i)})
			}
		}(uint32(p + 1))
	}
	wg.Wait()

	next := make(map[uint32]int32, producers)
	total := 0
	for {
		msg, ok := mb.Pop()
		if !ok {
			break
		}
		require.Equal(t, next[msg.Source], msg.Session, "producer %d out of order", msg.Source)
		next[msg.Source]++
		total++
	}
	require.Equal(t, producers*perProducer, total)
	for p := range producers {
		require.EqualValues(t, perProducer, next[uint32(p+1)])
	}
}

func TestMailboxExclusiveDrain(t *testing.T) {
	const (
		producers   = 4
		perProducer = 5000
		workers     = 4
	)

	queue := NewDispatchQueue()
	mb := New(1, queue)
	mb.Publish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		inflight  atomic.Int32
		violation atomic.Bool
		delivered atomic.Int64
		orderMu   sync.Mutex
		order     = make(map[uint32]int32, producers)
		outOfSeq  atomic.Bool
	)

	var workersWg sync.WaitGroup
	workersWg.Add(workers)
	for range workers {
		go func() {
			defer workersWg.Done()
			for {
				next := queue.Pop()
				if next == nil {
					if queue.Wait(ctx) != nil {
						return
					}
					continue
				}

				for {
					msg, ok := next.Pop()
					if !ok {
						break
					}
					if inflight.Add(1) > 1 {
						violation.Store(true)
					}
					orderMu.Lock()
					if order[msg.Source] != msg.Session {
						outOfSeq.Store(true)
					}
					order[msg.Source] = msg.Session + 1
					orderMu.Unlock()
					inflight.Add(-1)
					delivered.Add(1)
				}
			}
		}()
	}

	var producersWg sync.WaitGroup
	producersWg.Add(producers)
	for p := range producers {
		go func(source uint32) {
			defer producersWg.Done()
			for i := range perProducer {
				mb.Push(Message{Source: source, Session: int32(i)})
			}
		}(uint32(p + 1))
	}
	producersWg.Wait()

	require.Eventually(t, func() bool {
		return delivered.Load() == producers*perProducer
	}, 10*time.Second, 5*time.Millisecond)

	cancel()
	workersWg.Wait()

	assert.False(t, violation.Load(), "two workers drained the mailbox at once")
	assert.False(t, outOfSeq.Load(), "messages delivered out of order")
	assert.Zero(t, queue.Len())
}

func TestMailboxRelease(t *testing.T) {
	t.Run("With mark twice", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.MarkRelease()
		assert.Panics(t, mb.MarkRelease)
	})
	t.Run("With idle mailbox linked on mark", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		require.Same(t, mb, queue.Pop())
		_, ok := mb.Pop()
		require.False(t, ok)

		mb.MarkRelease()
		require.Same(t, mb, queue.Pop())
		require.True(t, mb.Release(func(Message) { t.Fatal("nothing to drop") }))
		require.True(t, mb.Released())
	})
	t.Run("With queued mailbox not linked again on mark", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		mb.MarkRelease()
		require.Equal(t, 1, queue.Len())
	})
	t.Run("With mark while draining", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		mb.Push(Message{Session: 7})
		require.Same(t, mb, queue.Pop())

		// the worker still holds the drain rights when the mark lands
		mb.MarkRelease()
		require.Zero(t, queue.Len())

		msg, ok := mb.Pop()
		require.True(t, ok)
		require.EqualValues(t, 7, msg.Session)

		// empty pop hands the mailbox back instead of losing the mark
		_, ok = mb.Pop()
		require.False(t, ok)
		require.Same(t, mb, queue.Pop())
		require.True(t, mb.Release(func(Message) {}))
	})
	t.Run("With release before mark", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		require.Same(t, mb, queue.Pop())

		require.False(t, mb.Release(func(Message) {}))
		require.Same(t, mb, queue.Pop())
		require.False(t, mb.Released())
	})
	t.Run("With release of a linked mailbox", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		mb.MarkRelease()
		assert.Panics(t, func() { mb.Release(func(Message) {}) })
	})
	t.Run("With never published mailbox", func(t *testing.T) {
		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Push(Message{Session: 1})
		mb.MarkRelease()
		require.Zero(t, queue.Len())

		var dropped []int32
		require.True(t, mb.Release(func(msg Message) { dropped = append(dropped, msg.Session) }))
		require.Equal(t, []int32{1}, dropped)
		assert.Panics(t, func() { mb.Release(func(Message) {}) })
	})
	t.Run("With pending and concurrent pushes", func(t *testing.T) {
		const (
			pending   = 300
			producers = 4
			late      = 500
		)

		queue := NewDispatchQueue()
		mb := New(1, queue)
		mb.Publish()
		for i := range pending {
			mb.Push(Message{Session: int32(i)})
		}
		require.Same(t, mb, queue.Pop())
		mb.MarkRelease()

		var dropped atomic.Int64
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(producers)
		for range producers {
			go func() {
				defer wg.Done()
				<-start
				for range late {
					mb.Push(Message{})
				}
			}()
		}

		close(start)
		require.True(t, mb.Release(func(Message) { dropped.Add(1) }))
		wg.Wait()

		// every message is accounted for exactly once and nothing is left to deliver
		require.EqualValues(t, pending+producers*late, dropped.Load())
		require.Zero(t, mb.Len())
		require.Zero(t, queue.Len())
		_, ok := mb.Pop()
		require.False(t, ok)
	})
}

func TestMessageType(t *testing.T) {
	assert.Equal(t, "text", MessageTypeText.String())
	assert.Equal(t, "response", MessageTypeResponse.String())
	assert.Equal(t, "request", MessageTypeRequest.String())
	assert.Equal(t, "system", MessageTypeSystem.String())
	assert.Equal(t, "error", MessageTypeError.String())
	assert.Equal(t, "type(42)", MessageType(42).String())
	assert.Equal(t, 3, Message{Payload: []byte("abc")}.Size())
}
