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
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/skyrun/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMonitor(t *testing.T) {
	t.Run("With idle monitor", func(t *testing.T) {
		monitor := new(Monitor)
		for range 3 {
			_, stalled := monitor.Check()
			require.False(t, stalled)
		}
	})
	t.Run("With dispatch not completed across two checks", func(t *testing.T) {
		monitor := new(Monitor)
		monitor.Trigger(1, 2)

		// first check only records the baseline
		_, stalled := monitor.Check()
		require.False(t, stalled)

		stall, stalled := monitor.Check()
		require.True(t, stalled)
		assert.Equal(t, Stall{Source: 1, Destination: 2, Version: 1}, stall)

		// one flag per check while nothing moves
		_, stalled = monitor.Check()
		require.True(t, stalled)
	})
	t.Run("With version advanced between checks", func(t *testing.T) {
		monitor := new(Monitor)
		monitor.Trigger(1, 2)
		_, stalled := monitor.Check()
		require.False(t, stalled)

		monitor.Trigger(0, 0)
		_, stalled = monitor.Check()
		require.False(t, stalled)

		// completed dispatch never alarms
		_, stalled = monitor.Check()
		require.False(t, stalled)
		require.EqualValues(t, 2, monitor.Version())
	})
	t.Run("With busy worker dispatching continuously", func(t *testing.T) {
		monitor := new(Monitor)
		for i := range 10 {
			monitor.Trigger(uint32(i+1), 7)
			_, stalled := monitor.Check()
			require.False(t, stalled)
		}
	})
}

func TestWatchdog(t *testing.T) {
	t.Run("With invalid size", func(t *testing.T) {
		assert.Panics(t, func() { New(0) })
	})
	t.Run("With Check forwarding to sink", func(t *testing.T) {
		var (
			mu     sync.Mutex
			stalls []Stall
		)
		sink := SinkFunc(func(stall Stall) {
			mu.Lock()
			stalls = append(stalls, stall)
			mu.Unlock()
		})

		watchdog := New(3, WithSink(sink), WithLogger(log.DiscardLogger))
		require.Equal(t, 3, watchdog.Size())

		watchdog.Monitor(1).Trigger(4, 5)
		watchdog.Monitor(2).Trigger(6, 7)
		require.Empty(t, watchdog.Check())

		watchdog.Monitor(2).Trigger(0, 0)
		found := watchdog.Check()
		require.Len(t, found, 1)
		assert.Equal(t, Stall{Source: 4, Destination: 5, Version: 1}, found[0])

		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, found, stalls)
	})
	t.Run("With default log sink", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		watchdog := New(1, WithLogger(log.NewZap(log.InfoLevel, buffer)))
		watchdog.Monitor(0).Trigger(0x10, 0x20)
		watchdog.Check()
		watchdog.Check()
		assert.Contains(t, buffer.String(),
			"A message from [ :00000010 ] to [ :00000020 ] maybe in an endless loop (version = 1)")
	})
	t.Run("With supervisor loop", func(t *testing.T) {
		ring := NewRingSink(8)
		defer ring.Close()

		watchdog := New(2,
			WithInterval(10*time.Millisecond),
			WithSink(ring),
			WithLogger(log.DiscardLogger))

		watchdog.Monitor(0).Trigger(1, 9)

		watchdog.Start(context.Background())
		watchdog.Start(context.Background())

		var stalls []Stall
		require.Eventually(t, func() bool {
			stalls = append(stalls, ring.Drain()...)
			return len(stalls) > 0
		}, time.Second, 5*time.Millisecond)
		assert.EqualValues(t, 9, stalls[0].Destination)

		watchdog.Stop()
		watchdog.Stop()
	})
	t.Run("With context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		watchdog := New(1, WithInterval(time.Millisecond), WithLogger(log.DiscardLogger))
		watchdog.Start(ctx)
		cancel()
		watchdog.Stop()
	})
}

func TestRingSink(t *testing.T) {
	t.Run("With drain order", func(t *testing.T) {
		sink := NewRingSink(4)
		defer sink.Close()

		sink.Stalled(Stall{Destination: 1})
		sink.Stalled(Stall{Destination: 2})

		stalls := sink.Drain()
		require.Len(t, stalls, 2)
		assert.EqualValues(t, 1, stalls[0].Destination)
		assert.EqualValues(t, 2, stalls[1].Destination)
		assert.Empty(t, sink.Drain())
	})
	t.Run("With full ring evicting the oldest", func(t *testing.T) {
		sink := NewRingSink(2)
		defer sink.Close()

		for i := range 3 {
			sink.Stalled(Stall{Destination: uint32(i + 1)})
		}

		stalls := sink.Drain()
		require.Len(t, stalls, 2)
		assert.EqualValues(t, 2, stalls[0].Destination)
		assert.EqualValues(t, 3, stalls[1].Destination)
		assert.EqualValues(t, 1, sink.Evicted())
	})
	t.Run("With closed ring", func(t *testing.T) {
		sink := NewRingSink(2)
		sink.Close()
		sink.Stalled(Stall{Destination: 1})
		assert.Empty(t, sink.Drain())
	})
}
