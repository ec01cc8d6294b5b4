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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/tochemey/skyrun/config"
	"github.com/tochemey/skyrun/engine"
	"github.com/tochemey/skyrun/env"
	"github.com/tochemey/skyrun/log"
	"github.com/tochemey/skyrun/mailbox"
	"github.com/tochemey/skyrun/module"
	"github.com/tochemey/skyrun/service/logger"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	config     *config.Config
	configPath string
	// modules registered on top of the built-in ones, used by tests
	modules []module.Module
}

func newOptions() *options {
	return &options{config: config.Default()}
}

func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.configPath, "config", "", "path of the configuration file")
	cmd.Flags().IntVar(&o.config.Thread, "thread", o.config.Thread, "number of workers")
	cmd.Flags().StringVar(&o.config.Logger, "logger", o.config.Logger, "log file of the logger service, stdout when empty")
	cmd.Flags().StringVar(&o.config.Bootstrap, "bootstrap", o.config.Bootstrap, "first service to launch, as \"module param...\"")
	cmd.Flags().StringVar(&o.config.ModulePath, "cpath", o.config.ModulePath, "plugin search path, '?' standing for the module name")
	cmd.Flags().StringVar(&o.config.LogLevel, "log-level", o.config.LogLevel, "runtime log level (debug|info|warn|error)")
}

// complete loads the configuration file and applies the flags set on the
// command line on top of it.
func (o *options) complete(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "thread":
			cfg.Thread = o.config.Thread
		case "logger":
			cfg.Logger = o.config.Logger
		case "bootstrap":
			cfg.Bootstrap = o.config.Bootstrap
		case "cpath":
			cfg.ModulePath = o.config.ModulePath
		case "log-level":
			cfg.LogLevel = o.config.LogLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	o.config = cfg
	return nil
}

// run starts the engine, launches the logger and bootstrap services and
// blocks until ctx is done. hup requests the logger service to reopen its file.
func (o *options) run(ctx context.Context, hup <-chan os.Signal) error {
	cfg := o.config
	runtimeLogger := log.NewZap(cfg.Level(), os.Stdout)

	store := env.New()
	if err := store.Load(cfg.Environment()); err != nil {
		return err
	}

	registryOpts := []module.Option{module.WithLogger(runtimeLogger)}
	if cfg.ModulePath != "" {
		registryOpts = append(registryOpts, module.WithLoader(module.PluginLoader(cfg.ModulePath)))
	}

	registry := module.NewRegistry(registryOpts...)
	for _, m := range append([]module.Module{logger.Module()}, o.modules...) {
		if err := registry.Register(m); err != nil {
			return err
		}
	}

	e := engine.New(
		engine.WithWorkers(cfg.Thread),
		engine.WithLogger(runtimeLogger),
		engine.WithRegistry(registry),
		engine.WithEnv(store),
		engine.WithHarbor(cfg.Harbor),
		engine.WithWatchdogInterval(cfg.WatchdogInterval),
		engine.WithMailboxCapacity(cfg.MailboxCapacity),
		engine.WithInitRetries(cfg.InitRetries, cfg.InitTimeout))

	if err := e.Start(ctx); err != nil {
		return err
	}

	err := o.launch(ctx, e)
	if err == nil {
		err = o.wait(ctx, e, hup)
	}

	for _, stall := range e.Stalls() {
		runtimeLogger.Warnf("stalled during the run: message from :%08x to :%08x (version = %d)",
			stall.Source, stall.Destination, stall.Version)
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return multierr.Append(err, e.Stop(stopCtx))
}

func (o *options) launch(ctx context.Context, e *engine.Engine) error {
	cfg := o.config
	h, err := e.Spawn(ctx, cfg.LogService, cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to launch logger service: %w", err)
	}

	if err := e.Name(h, engine.LoggerName); err != nil {
		return err
	}

	name, param, ok := cfg.BootstrapService()
	if !ok {
		return nil
	}

	if _, err := e.Spawn(ctx, name, param); err != nil {
		e.Errorf(0, "Bootstrap error : %s", cfg.Bootstrap)
		return fmt.Errorf("failed to bootstrap: %w", err)
	}
	return nil
}

func (o *options) wait(ctx context.Context, e *engine.Engine, hup <-chan os.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := e.SendName(0, engine.LoggerName, mailbox.MessageTypeSystem, 0, nil); err != nil {
				e.Logger().Warnf("failed to signal the logger service: %v", err)
			}
		}
	}
}

func newCommand() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:           "skyrun",
		Short:         "Run services on a fixed pool of workers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			return o.run(ctx, hup)
		},
	}

	o.addFlags(command)
	return command
}
