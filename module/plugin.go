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
	"os"
	"plugin"
	"strings"

	"github.com/tochemey/skyrun/errors"
)

// Symbol is the exported variable a plugin must provide. It must be of
// type Module or *Module.
const Symbol = "Module"

// PluginLoader loads modules from Go plugins. path is a list of templates
// separated by ';' where '?' stands for the module name, e.g.
// "./cservice/?.so;/usr/lib/skyrun/?.so". The first existing file wins.
func PluginLoader(path string) Loader {
	return LoaderFunc(func(name string) (Module, error) {
		candidates, err := expandPath(path, name)
		if err != nil {
			return nil, err
		}

		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}

			p, err := plugin.Open(candidate)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", candidate, err)
			}

			sym, err := p.Lookup(Symbol)
			if err != nil {
				return nil, fmt.Errorf("lookup %s in %s: %w", Symbol, candidate, err)
			}

			switch m := sym.(type) {
			case *Module:
				return *m, nil
			case Module:
				return m, nil
			default:
				return nil, fmt.Errorf("symbol %s in %s has type %T", Symbol, candidate, sym)
			}
		}
		return nil, fmt.Errorf("%w: no plugin for %s in %q", errors.ErrModuleNotFound, name, path)
	})
}

func expandPath(path, name string) ([]string, error) {
	var candidates []string
	for _, template := range strings.Split(path, ";") {
		if template == "" {
			continue
		}
		if !strings.Contains(template, "?") {
			return nil, fmt.Errorf("invalid module path %q: missing '?'", template)
		}
		candidates = append(candidates, strings.Replace(template, "?", name, 1))
	}
	return candidates, nil
}
