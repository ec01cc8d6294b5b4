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

// Package errors defines the sentinel errors returned by the runtime.
// Invariant violations are not represented here: they panic.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotStarted is returned when an operation requires a running engine.
	ErrEngineNotStarted = errors.New("engine is not running")

	// ErrEngineStarted is returned when Start is called on a running engine.
	ErrEngineStarted = errors.New("engine is already running")

	// ErrServiceNotFound is returned when a handle or name does not resolve to a live service.
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidHandle is returned for the reserved zero handle.
	ErrInvalidHandle = errors.New("invalid service handle")

	// ErrNameTaken is returned when a service name is already bound to another handle.
	ErrNameTaken = errors.New("service name is already taken")

	// ErrInvalidName is returned when a service name is empty.
	ErrInvalidName = errors.New("invalid service name")

	// ErrModuleNotFound is returned when no module is registered or loadable under a name.
	ErrModuleNotFound = errors.New("module not found")

	// ErrModuleExists is returned when registering a module name twice.
	ErrModuleExists = errors.New("module already registered")

	// ErrTooManyModules is returned when the registry is full.
	ErrTooManyModules = errors.New("too many module types")

	// ErrInitFailure is returned when a service instance fails to initialise.
	ErrInitFailure = errors.New("service init failed")

	// ErrEnvKeyExists is returned when setting an environment key twice.
	ErrEnvKeyExists = errors.New("environment key already set")

	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SpawnError wraps the reason a service could not be launched.
type SpawnError struct {
	module string
	err    error
}

var _ error = (*SpawnError)(nil)

// NewSpawnError returns an instance of SpawnError
func NewSpawnError(module string, err error) *SpawnError {
	return &SpawnError{
		module: module,
		err:    fmt.Errorf("spawn %s: %w", module, err),
	}
}

// Module returns the name of the module that failed to spawn.
func (s *SpawnError) Module() string {
	return s.module
}

// Error implements the standard error interface
func (s *SpawnError) Error() string {
	return s.err.Error()
}

func (s *SpawnError) Unwrap() error {
	return s.err
}
