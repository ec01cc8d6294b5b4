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

package module

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/log"
)

// MaxModules is the number of module types a Registry accepts.
const MaxModules = 32

// Loader resolves modules that were not registered up front.
type Loader interface {
	Load(name string) (Module, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(name string) (Module, error)

// Load calls f(name).
func (f LoaderFunc) Load(name string) (Module, error) {
	return f(name)
}

// Registry holds the module types known to a runtime.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	loader  Loader
	logger  log.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	registry := &Registry{
		modules: make(map[string]Module, MaxModules),
		logger:  log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(registry)
	}
	return registry
}

// Register adds m to the registry.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(m)
}

// Query returns the module named name. Unknown names go through the
// Loader, if any, and the result is cached.
func (r *Registry) Query(name string) (Module, error) {
	r.mu.RLock()
	m, ok := r.modules[name]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		return m, nil
	}

	if r.loader == nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrModuleNotFound, name)
	}

	if len(r.modules) >= MaxModules {
		return nil, fmt.Errorf("%w: cannot load %s", errors.ErrTooManyModules, name)
	}

	m, err := r.loader.Load(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrModuleNotFound, name, err)
	}

	if m.Name() != name {
		return nil, fmt.Errorf("%w: loader returned %q for %q", errors.ErrModuleNotFound, m.Name(), name)
	}

	if err := r.add(m); err != nil {
		return nil, err
	}

	r.logger.Debugf("module %s loaded", name)
	return m, nil
}

// Names returns the registered module names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) add(m Module) error {
	name := m.Name()
	if name == "" {
		return errors.ErrInvalidName
	}

	if _, ok := r.modules[name]; ok {
		return fmt.Errorf("%w: %s", errors.ErrModuleExists, name)
	}

	if len(r.modules) >= MaxModules {
		return fmt.Errorf("%w: %s", errors.ErrTooManyModules, name)
	}

	r.modules[name] = m
	return nil
}
