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

package validation

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestChain(t *testing.T) {
	t.Run("With no violation", func(t *testing.T) {
		chain := New().
			AddAssertion(true, "never").
			AddValidator(NewPositiveValidator("thread", 8)).
			AddValidator(NewDurationValidator("interval", time.Second))
		require.NoError(t, chain.Validate())
	})
	t.Run("With all errors", func(t *testing.T) {
		chain := New(AllErrors()).
			AddValidator(NewPositiveValidator("thread", 0)).
			AddAssertion(false, "logservice is required").
			AddValidator(NewDurationValidator("interval", -time.Second))
		err := chain.Validate()
		require.Error(t, err)
		errs := multierr.Errors(err)
		require.Len(t, errs, 3)
		assert.EqualError(t, errs[0], "thread must be positive, got 0")
		assert.EqualError(t, errs[1], "logservice is required")
		assert.EqualError(t, errs[2], "interval must be positive, got -1s")
	})
	t.Run("With fail fast", func(t *testing.T) {
		chain := New(FailFast()).
			AddValidator(NewPositiveValidator("thread", -1)).
			AddAssertion(false, "unreachable")
		err := chain.Validate()
		assert.EqualError(t, err, "thread must be positive, got -1")
	})
	t.Run("With validate twice", func(t *testing.T) {
		chain := New().AddAssertion(false, "boom")
		require.Len(t, multierr.Errors(chain.Validate()), 1)
		require.Len(t, multierr.Errors(chain.Validate()), 1)
	})
}

func TestPatternValidator(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]+$`)
	require.NoError(t, NewPatternValidator("name", pattern, "logger").Validate())
	assert.EqualError(t, NewPatternValidator("name", pattern, "Log ger").Validate(), `invalid name "Log ger"`)
}

func TestBooleanValidator(t *testing.T) {
	require.NoError(t, NewBooleanValidator(true, "error message").Validate())
	assert.EqualError(t, NewBooleanValidator(false, "error message").Validate(), "error message")
}
