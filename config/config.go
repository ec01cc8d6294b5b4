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

// Package config reads the runtime configuration file.
//
// The file is YAML. ${VAR} references are expanded from the process
// environment before parsing. Every setting is also exported to the
// service environment, so services read it with Getenv.
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/internal/validation"
	"github.com/tochemey/skyrun/log"
)

const (
	// DefaultThread is the default number of workers.
	DefaultThread = 8
	// DefaultLogService is the default logger module.
	DefaultLogService = "logger"
	// DefaultWatchdogInterval is the default pause between watchdog checks.
	DefaultWatchdogInterval = 5 * time.Second
	// DefaultMailboxCapacity is the default initial mailbox capacity.
	DefaultMailboxCapacity = 64
	// DefaultInitTimeout is the default time budget of a service Init.
	DefaultInitTimeout = time.Second
)

var moduleName = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// Config holds the runtime settings.
type Config struct {
	// Thread is the number of workers.
	Thread int `yaml:"thread"`
	// Harbor is the node id stamped in every handle.
	Harbor uint8 `yaml:"harbor"`
	// Logger is the file of the logger service, stdout when empty.
	Logger string `yaml:"logger"`
	// LogService is the module launched as the logger service.
	LogService string `yaml:"logservice"`
	// Bootstrap is the first service, as "module param...".
	Bootstrap string `yaml:"bootstrap"`
	// ModulePath is the ';' separated plugin search path, '?' standing for the module name.
	ModulePath string `yaml:"cpath"`
	// LogLevel is the level of the runtime logger.
	LogLevel string `yaml:"log_level"`
	// WatchdogInterval is the pause between two watchdog checks.
	WatchdogInterval time.Duration `yaml:"watchdog_interval"`
	// MailboxCapacity is the initial capacity of every mailbox.
	MailboxCapacity int `yaml:"mailbox_capacity"`
	// InitRetries is the number of attempts of a failing service Init.
	InitRetries int `yaml:"init_retries"`
	// InitTimeout is the time budget of a service Init.
	InitTimeout time.Duration `yaml:"init_timeout"`
	// Env holds extra settings exported to services.
	Env map[string]string `yaml:"env"`
}

// Default returns the configuration used for missing settings.
func Default() *Config {
	return &Config{
		Thread:           DefaultThread,
		LogService:       DefaultLogService,
		LogLevel:         log.InfoLevel.String(),
		WatchdogInterval: DefaultWatchdogInterval,
		MailboxCapacity:  DefaultMailboxCapacity,
		InitRetries:      1,
		InitTimeout:      DefaultInitTimeout,
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	config := Default()

	decoder := yaml.NewDecoder(bytes.NewBufferString(os.ExpandEnv(string(data))))
	decoder.KnownFields(true)
	// an empty document keeps the defaults
	if err := decoder.Decode(config); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the settings and reports every violation at once.
func (c *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewPositiveValidator("thread", c.Thread)).
		AddValidator(validation.NewPatternValidator("logservice", moduleName, c.LogService)).
		AddValidator(validation.NewDurationValidator("watchdog_interval", c.WatchdogInterval)).
		AddValidator(validation.NewPositiveValidator("mailbox_capacity", c.MailboxCapacity)).
		AddValidator(validation.NewPositiveValidator("init_retries", c.InitRetries)).
		AddValidator(validation.NewDurationValidator("init_timeout", c.InitTimeout)).
		AddAssertion(log.ParseLevel(c.LogLevel) != log.InvalidLevel, fmt.Sprintf("unknown log_level %q", c.LogLevel))

	if err := chain.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return nil
}

// Level returns the runtime log level.
func (c *Config) Level() log.Level {
	return log.ParseLevel(c.LogLevel)
}

// BootstrapService splits Bootstrap into a module name and its param.
// ok is false when no bootstrap service is configured.
func (c *Config) BootstrapService() (name, param string, ok bool) {
	fields := strings.Fields(c.Bootstrap)
	if len(fields) == 0 {
		return "", "", false
	}
	return fields[0], strings.Join(fields[1:], " "), true
}

// Environment returns every setting as the key/value pairs exported to
// services. Entries of Env cannot shadow the named settings.
func (c *Config) Environment() map[string]string {
	values := make(map[string]string, len(c.Env)+8)
	for key, value := range c.Env {
		values[key] = value
	}

	values["thread"] = strconv.Itoa(c.Thread)
	values["harbor"] = strconv.Itoa(int(c.Harbor))
	values["logger"] = c.Logger
	values["logservice"] = c.LogService
	values["bootstrap"] = c.Bootstrap
	values["cpath"] = c.ModulePath
	values["log_level"] = c.LogLevel
	values["watchdog_interval"] = c.WatchdogInterval.String()
	values["mailbox_capacity"] = strconv.Itoa(c.MailboxCapacity)
	return values
}
