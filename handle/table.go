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

// Package handle maps service handles to values.
//
// A handle is a 32 bit id: the top 8 bits carry the harbor (node) id and
// the low 24 bits the local index. Zero is never a valid handle.
package handle

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/hash"
	"github.com/tochemey/skyrun/internal/xsync"
)

const (
	// RemoteShift is the position of the harbor id inside a handle.
	RemoteShift = 24
	// Mask selects the local index of a handle.
	Mask = 0xffffff

	nameShards = 16
)

// Table is a concurrency-safe handle table.
type Table[V any] struct {
	mu     sync.RWMutex
	harbor uint32
	hasher hash.Hasher
	next   uint32
	slots  map[uint32]V
	// names bound to each live handle, used to unbind on retire
	bound map[uint32][]string
	names [nameShards]*xsync.Map[string, uint32]
}

// NewTable creates an empty Table.
func NewTable[V any](opts ...Option) *Table[V] {
	config := newConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	table := &Table[V]{
		harbor: uint32(config.harbor) << RemoteShift,
		hasher: config.hasher,
		slots:  make(map[uint32]V),
		bound:  make(map[uint32][]string),
	}
	for i := range table.names {
		table.names[i] = xsync.NewMap[string, uint32]()
	}
	return table
}

// Register stores v under a fresh handle and returns it. Indexes wrap
// around and skip the ones still in use. It panics when every index is taken.
func (t *Table[V]) Register(v V) uint32 {
	return t.RegisterFunc(func(uint32) V { return v })
}

// RegisterFunc is like Register but builds the value from its handle, so
// that the value is complete before any Get can observe it. build runs
// under the table lock and must not call back into the table.
func (t *Table[V]) RegisterFunc(build func(h uint32) V) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.slots) >= Mask {
		panic("handle: table is full")
	}

	for {
		t.next = (t.next + 1) & Mask
		if t.next == 0 {
			continue
		}
		h := t.harbor | t.next
		if _, used := t.slots[h]; used {
			continue
		}
		t.slots[h] = build(h)
		return h
	}
}

// Get returns the value stored under h.
func (t *Table[V]) Get(h uint32) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.slots[h]
	return v, ok
}

// Retire removes h and every name bound to it.
func (t *Table[V]) Retire(h uint32) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retire(h)
}

// RetireAll removes every handle and returns the values in handle order.
func (t *Table[V]) RetireAll() []V {
	t.mu.Lock()
	defer t.mu.Unlock()

	handles := t.sorted()
	values := make([]V, 0, len(handles))
	for _, h := range handles {
		v, _ := t.retire(h)
		values = append(values, v)
	}
	return values
}

// Len returns the number of live handles.
func (t *Table[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Handles returns the live handles in ascending order.
func (t *Table[V]) Handles() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sorted()
}

// SetName binds name to the live handle h.
func (t *Table[V]) SetName(name string, h uint32) error {
	if name == "" {
		return errors.ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.slots[h]; !ok {
		return fmt.Errorf("%w: :%08x", errors.ErrInvalidHandle, h)
	}

	if !t.shard(name).SetIfAbsent(name, h) {
		return fmt.Errorf("%w: %s", errors.ErrNameTaken, name)
	}
	t.bound[h] = append(t.bound[h], name)
	return nil
}

// FindName returns the handle bound to name.
func (t *Table[V]) FindName(name string) (uint32, bool) {
	return t.shard(name).Get(name)
}

// Harbor returns the harbor id carried by h.
func Harbor(h uint32) uint8 {
	return uint8(h >> RemoteShift)
}

func (t *Table[V]) retire(h uint32) (V, bool) {
	v, ok := t.slots[h]
	if !ok {
		return v, false
	}

	delete(t.slots, h)
	for _, name := range t.bound[h] {
		t.shard(name).DeleteIf(name, func(owner uint32) bool { return owner == h })
	}
	delete(t.bound, h)
	return v, true
}

func (t *Table[V]) sorted() []uint32 {
	handles := make([]uint32, 0, len(t.slots))
	for h := range t.slots {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

func (t *Table[V]) shard(name string) *xsync.Map[string, uint32] {
	return t.names[t.hasher.HashString(name)%nameShards]
}
