// go-tagserial
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-tagserial.
//
// go-tagserial is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-tagserial is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-tagserial; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command tagserial bridges a serial console to an NFC tag reader.
//
// Usage:
//
//	tagserial -console /dev/ttyACM0 -reader pn532_uart -device /dev/ttyUSB0
//	tagserial -reader virtual -tag-type NTAG215       # loopback on the terminal
//	tagserial -list-ports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZaparooProject/go-tagserial/config"
	"github.com/ZaparooProject/go-tagserial/detection"
	"github.com/ZaparooProject/go-tagserial/internal/logging"
	"github.com/ZaparooProject/go-tagserial/polling"
	"github.com/ZaparooProject/go-tagserial/protocol"
)

type cliFlags struct {
	configPath   string
	consoleDev   string
	readerDriver string
	readerDev    string
	tagType      string
	logFile      string
	baud         int
	capacity     int
	pollInterval time.Duration
	timeout      time.Duration
	debug        bool
	listPorts    bool
	printConfig  bool
	set          map[string]bool
}

func parseFlags(args []string) (*cliFlags, error) {
	defaults := config.Default()
	f := &cliFlags{}

	fs := flag.NewFlagSet("tagserial", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "TOML config file")
	fs.StringVar(&f.consoleDev, "console", defaults.Console.Device,
		`Serial port speaking the command protocol, or "stdin" for the terminal`)
	fs.IntVar(&f.baud, "baud", defaults.Console.Baud, "Console baud rate")
	fs.StringVar(&f.readerDriver, "reader", defaults.Reader.Driver,
		"Reader driver: virtual, pn532_uart or pn532_i2c")
	fs.StringVar(&f.readerDev, "device", "", "Reader device path (e.g., /dev/ttyUSB0 or /dev/i2c-1)")
	fs.StringVar(&f.tagType, "tag-type", defaults.Reader.TagType, "Tag type of the virtual reader")
	fs.DurationVar(&f.timeout, "timeout", defaults.Reader.Timeout, "PN532 command timeout")
	fs.DurationVar(&f.pollInterval, "poll-interval", defaults.Protocol.PollInterval, "Poll loop interval")
	fs.IntVar(&f.capacity, "capacity", defaults.Protocol.Capacity, "Largest accepted write payload")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log-file", "", "Also log to this file, rotated")
	fs.BoolVar(&f.listPorts, "list-ports", false, "List serial ports and I2C buses and exit")
	fs.BoolVar(&f.printConfig, "print-config", false, "Print the effective config as TOML and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// resolveConfig loads the config file, if any, and lays explicitly set flags
// over it.
func resolveConfig(f *cliFlags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if f.set["console"] {
		cfg.Console.Device = f.consoleDev
	}
	if f.set["baud"] {
		cfg.Console.Baud = f.baud
	}
	if f.set["reader"] {
		cfg.Reader.Driver = f.readerDriver
	}
	if f.set["device"] {
		cfg.Reader.Device = f.readerDev
	}
	if f.set["tag-type"] {
		cfg.Reader.TagType = f.tagType
	}
	if f.set["timeout"] {
		cfg.Reader.Timeout = f.timeout
	}
	if f.set["poll-interval"] {
		cfg.Protocol.PollInterval = f.pollInterval
	}
	if f.set["capacity"] {
		cfg.Protocol.Capacity = f.capacity
	}
	if f.set["debug"] {
		cfg.Log.Debug = f.debug
	}
	if f.set["log-file"] {
		cfg.Log.File = f.logFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

func listPorts(w io.Writer, cfg config.Config) error {
	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{cfg.Console.Device}

	ports, err := detection.List(opts)
	if errors.Is(err, detection.ErrNoDevicesFound) {
		_, _ = fmt.Fprintln(w, "No devices found")
		return nil
	}
	if err != nil {
		return err
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(w, p.String())
	}
	return nil
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	reader, closeReader, err := openReader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeReader()

	con, err := openConsole(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := con.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close console")
		}
	}()

	session := protocol.NewSession(protocol.WithCapacity(cfg.Protocol.Capacity))
	logger.Info().
		Str("console", cfg.Console.Device).
		Str("reader", cfg.Reader.Driver).
		Int("capacity", session.Capacity()).
		Msg("bridge started")

	driver := polling.NewDriver(session, reader, con,
		polling.WithPollInterval(cfg.Protocol.PollInterval),
		polling.WithLogger(logger),
	)

	err = driver.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := resolveConfig(f)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if f.printConfig {
		if err := cfg.Encode(os.Stdout); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	if f.listPorts {
		if err := listPorts(os.Stdout, cfg); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	logger, closeLog, err := logging.New(logging.Options{
		Stderr: os.Stderr,
		File:   cfg.Log.File,
		Debug:  cfg.Log.Debug,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = closeLog.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("bridge failed")
		return 1
	}
	logger.Info().Msg("bridge stopped")
	return 0
}
