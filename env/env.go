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

// Package env holds the process-wide key/value settings shared by services.
// A key can be set once; later writes are rejected.
package env

import (
	"fmt"
	"sort"

	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/internal/xsync"
)

// Store is a set-once string store.
type Store struct {
	values *xsync.Map[string, string]
}

// New creates an empty Store.
func New() *Store {
	return &Store{values: xsync.NewMap[string, string]()}
}

// Get returns the value of key.
func (s *Store) Get(key string) (string, bool) {
	return s.values.Get(key)
}

// Set stores value under key. It fails when key is already set.
func (s *Store) Set(key, value string) error {
	if key == "" {
		return errors.ErrInvalidName
	}
	if !s.values.SetIfAbsent(key, value) {
		return fmt.Errorf("%w: %s", errors.ErrEnvKeyExists, key)
	}
	return nil
}

// Load sets every entry of values. Keys are applied in order and the
// first failure stops the load.
func (s *Store) Load(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := s.Set(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the keys set so far in order.
func (s *Store) Keys() []string {
	keys := s.values.Keys()
	sort.Strings(keys)
	return keys
}
