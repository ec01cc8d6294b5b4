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

// Package logger provides the built-in logger service.
//
// The service writes every text message it receives as one log entry
// tagged with the sender handle. Its Init param is the output file, or
// empty for stdout. A system message reopens the file in append mode so
// that an external tool can rotate it.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/mailbox"
	"github.com/tochemey/skyrun/module"
)

// Name is the module name of the logger service.
const Name = "logger"

// Module returns the logger module.
func Module() module.Module {
	return module.ModuleFunc(Name, func() module.Instance {
		return new(service)
	})
}

type service struct {
	filename string
	file     *os.File
	logger   *log.Zap
}

var _ module.Instance = (*service)(nil)

// Init opens the output.
func (s *service) Init(_ module.Context, param string) error {
	if param == "" {
		s.logger = log.NewZap(log.InfoLevel, os.Stdout)
		return nil
	}

	file, err := os.OpenFile(param, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	s.filename = param
	s.file = file
	s.logger = log.NewZap(log.InfoLevel, file)
	return nil
}

// Receive writes text messages and reopens the file on system messages.
func (s *service) Receive(ctx module.Context, msg *mailbox.Message) {
	switch msg.Type {
	case mailbox.MessageTypeText:
		s.logger.With("source", fmt.Sprintf(":%08x", msg.Source)).Info(string(msg.Payload))
	case mailbox.MessageTypeSystem:
		if err := s.reopen(); err != nil {
			ctx.Logger().Errorf("failed to reopen %s: %v", s.filename, err)
		}
	}
}

// Release flushes and closes the output.
func (s *service) Release() {
	_ = s.close()
}

// Signal implements module.Instance.
func (s *service) Signal(int) {}

func (s *service) reopen() error {
	if s.filename == "" {
		return nil
	}

	if err := s.close(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// keep logging somewhere
		s.logger = log.NewZap(log.InfoLevel, os.Stdout)
		return err
	}

	s.file = file
	s.logger = log.NewZap(log.InfoLevel, file)
	return nil
}

func (s *service) close() error {
	if s.logger == nil {
		return nil
	}

	err := s.logger.Close()
	if s.file != nil {
		err = multierr.Append(err, s.file.Close())
		s.file = nil
	}
	s.logger = nil
	return err
}
