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
	"fmt"
	"time"
)

// Number is the set of values NewPositiveValidator accepts.
type Number interface {
	~int | ~int32 | ~int64 | ~uint8 | ~uint32
}

type positiveValidator[T Number] struct {
	field string
	value T
}

var _ Validator = (*positiveValidator[int])(nil)

// NewPositiveValidator fails when value is not strictly positive.
func NewPositiveValidator[T Number](field string, value T) Validator {
	return &positiveValidator[T]{field: field, value: value}
}

// Validate implements Validator.
func (v *positiveValidator[T]) Validate() error {
	if v.value <= 0 {
		return fmt.Errorf("%s must be positive, got %v", v.field, v.value)
	}
	return nil
}

// NewDurationValidator fails when d is not strictly positive.
func NewDurationValidator(field string, d time.Duration) Validator {
	return &positiveValidator[time.Duration]{field: field, value: d}
}
