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

// Package hash defines the hashing used to spread service names.
package hash

import "github.com/zeebo/xxh3"

// Hasher computes a 64 bit hash of a key.
type Hasher interface {
	// HashCode returns the hash of key.
	HashCode(key []byte) uint64
	// HashString returns the hash of key.
	HashString(key string) uint64
}

type xhasher struct{}

var _ Hasher = xhasher{}

// DefaultHasher returns the xxh3 based Hasher.
func DefaultHasher() Hasher {
	return xhasher{}
}

// HashCode implements Hasher.
func (xhasher) HashCode(key []byte) uint64 {
	return xxh3.Hash(key)
}

// HashString implements Hasher.
func (xhasher) HashString(key string) uint64 {
	return xxh3.HashString(key)
}
