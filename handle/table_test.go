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

package handle

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/hash"
)

type countingHasher struct {
	hash.Hasher
	calls atomic.Int32
}

func (c *countingHasher) HashString(key string) uint64 {
	c.calls.Inc()
	return c.Hasher.HashString(key)
}

func TestTable(t *testing.T) {
	t.Run("With register and get", func(t *testing.T) {
		table := NewTable[string]()
		first := table.Register("bootstrap")
		second := table.Register("logger")
		require.NotZero(t, first)
		require.NotEqual(t, first, second)
		require.Equal(t, 2, table.Len())

		v, ok := table.Get(second)
		require.True(t, ok)
		assert.Equal(t, "logger", v)

		_, ok = table.Get(0)
		assert.False(t, ok)
	})
	t.Run("With value built from its handle", func(t *testing.T) {
		table := NewTable[string]()
		h := table.RegisterFunc(func(h uint32) string { return fmt.Sprintf(":%08x", h) })
		v, ok := table.Get(h)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf(":%08x", h), v)
	})
	t.Run("With harbor id", func(t *testing.T) {
		table := NewTable[int](WithHarbor(3))
		h := table.Register(1)
		assert.EqualValues(t, 3, Harbor(h))
		assert.EqualValues(t, 1, h&Mask)
	})
	t.Run("With retire", func(t *testing.T) {
		table := NewTable[string]()
		h := table.Register("echo")

		v, ok := table.Retire(h)
		require.True(t, ok)
		assert.Equal(t, "echo", v)

		_, ok = table.Retire(h)
		assert.False(t, ok)
		assert.Zero(t, table.Len())
	})
	t.Run("With retired handles not reused while live ones are skipped", func(t *testing.T) {
		table := NewTable[int]()
		table.next = Mask - 1
		last := table.Register(1)
		assert.EqualValues(t, Mask, last)

		// wraps past zero
		wrapped := table.Register(2)
		assert.EqualValues(t, 1, wrapped)

		table.next = Mask - 1
		skipped := table.Register(3)
		assert.EqualValues(t, 2, skipped)
	})
	t.Run("With retire all", func(t *testing.T) {
		table := NewTable[string]()
		table.Register("a")
		table.Register("b")
		table.Register("c")
		require.Len(t, table.Handles(), 3)

		values := table.RetireAll()
		assert.Equal(t, []string{"a", "b", "c"}, values)
		assert.Zero(t, table.Len())
		assert.Empty(t, table.Handles())
	})
	t.Run("With names", func(t *testing.T) {
		table := NewTable[string]()
		h := table.Register("logger")

		require.NoError(t, table.SetName("logger", h))
		require.NoError(t, table.SetName(".log", h))
		found, ok := table.FindName("logger")
		require.True(t, ok)
		assert.Equal(t, h, found)

		other := table.Register("other")
		err := table.SetName("logger", other)
		require.ErrorIs(t, err, errors.ErrNameTaken)

		require.ErrorIs(t, table.SetName("", h), errors.ErrInvalidName)
		require.ErrorIs(t, table.SetName("ghost", 0xdead), errors.ErrInvalidHandle)

		table.Retire(h)
		_, ok = table.FindName("logger")
		assert.False(t, ok)
		_, ok = table.FindName(".log")
		assert.False(t, ok)

		// the name is free again
		require.NoError(t, table.SetName("logger", other))
	})
	t.Run("With custom hasher", func(t *testing.T) {
		hasher := &countingHasher{Hasher: hash.DefaultHasher()}
		table := NewTable[string](WithHasher(hasher))
		h := table.Register("logger")

		require.NoError(t, table.SetName("logger", h))
		found, ok := table.FindName("logger")
		require.True(t, ok)
		assert.Equal(t, h, found)
		assert.EqualValues(t, 2, hasher.calls.Load())
	})
	t.Run("With concurrent registration", func(t *testing.T) {
		table := NewTable[int]()
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = make(map[uint32]struct{})
		)
		for i := range 8 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := range 100 {
					h := table.Register(i*100 + j)
					_ = table.SetName(fmt.Sprintf("svc-%d-%d", i, j), h)
					mu.Lock()
					seen[h] = struct{}{}
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Len(t, seen, 800)
		assert.Equal(t, 800, table.Len())

		h, ok := table.FindName("svc-3-42")
		require.True(t, ok)
		v, _ := table.Get(h)
		assert.Equal(t, 342, v)
	})
}
