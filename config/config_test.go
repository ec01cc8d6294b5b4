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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/skyrun/errors"
	"github.com/tochemey/skyrun/log"
)

func TestParse(t *testing.T) {
	t.Run("With full document", func(t *testing.T) {
		config, err := Parse([]byte(`
thread: 4
harbor: 1
logger: ./skyrun.log
logservice: logger
bootstrap: gate port=8888 max=64
cpath: ./service/?.so
log_level: debug
watchdog_interval: 2s
mailbox_capacity: 128
init_retries: 3
init_timeout: 500ms
env:
  db: postgres://localhost
`))
		require.NoError(t, err)
		assert.Equal(t, 4, config.Thread)
		assert.EqualValues(t, 1, config.Harbor)
		assert.Equal(t, "./skyrun.log", config.Logger)
		assert.Equal(t, "./service/?.so", config.ModulePath)
		assert.Equal(t, log.DebugLevel, config.Level())
		assert.Equal(t, 2*time.Second, config.WatchdogInterval)
		assert.Equal(t, 128, config.MailboxCapacity)
		assert.Equal(t, 3, config.InitRetries)
		assert.Equal(t, 500*time.Millisecond, config.InitTimeout)

		name, param, ok := config.BootstrapService()
		require.True(t, ok)
		assert.Equal(t, "gate", name)
		assert.Equal(t, "port=8888 max=64", param)

		environment := config.Environment()
		assert.Equal(t, "postgres://localhost", environment["db"])
		assert.Equal(t, "4", environment["thread"])
		assert.Equal(t, "1", environment["harbor"])
		assert.Equal(t, "2s", environment["watchdog_interval"])
	})
	t.Run("With empty document", func(t *testing.T) {
		config, err := Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), config)

		_, _, ok := config.BootstrapService()
		assert.False(t, ok)
	})
	t.Run("With environment expansion", func(t *testing.T) {
		t.Setenv("SKYRUN_THREAD", "2")
		config, err := Parse([]byte("thread: ${SKYRUN_THREAD}\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, config.Thread)
	})
	t.Run("With env unable to shadow settings", func(t *testing.T) {
		config, err := Parse([]byte("thread: 2\nenv:\n  thread: \"99\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "2", config.Environment()["thread"])
	})
	t.Run("With unknown key", func(t *testing.T) {
		_, err := Parse([]byte("threads: 2\n"))
		require.ErrorIs(t, err, errors.ErrInvalidConfig)
	})
	t.Run("With malformed document", func(t *testing.T) {
		_, err := Parse([]byte("thread: [\n"))
		require.ErrorIs(t, err, errors.ErrInvalidConfig)
	})
	t.Run("With invalid values", func(t *testing.T) {
		documents := []string{
			"thread: 0",
			"logservice: \"\"",
			"watchdog_interval: 0s",
			"mailbox_capacity: -1",
			"init_retries: 0",
			"init_timeout: 0s",
			"log_level: verbose",
		}
		for _, document := range documents {
			_, err := Parse([]byte(document))
			assert.ErrorIs(t, err, errors.ErrInvalidConfig, document)
		}
	})
	t.Run("With every violation reported", func(t *testing.T) {
		_, err := Parse([]byte("thread: 0\nlogservice: \"bad name\"\n"))
		require.ErrorIs(t, err, errors.ErrInvalidConfig)
		assert.ErrorContains(t, err, "thread must be positive")
		assert.ErrorContains(t, err, `invalid logservice "bad name"`)
	})
}

func TestLoad(t *testing.T) {
	t.Run("With file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "skyrun.yaml")
		require.NoError(t, os.WriteFile(path, []byte("thread: 3\n"), 0o600))

		config, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 3, config.Thread)
	})
	t.Run("With missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
