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

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/config"
	"github.com/ZaparooProject/go-tagserial/console"
	"github.com/ZaparooProject/go-tagserial/reader/pn532"
	"github.com/ZaparooProject/go-tagserial/reader/virtual"
)

type consoleCloser interface {
	console.Console
	Close() error
}

// openReader returns the configured tag transport and a function releasing it.
func openReader(ctx context.Context, cfg config.Config, logger zerolog.Logger) (tagserial.TagTransport, func(), error) {
	switch cfg.Reader.Driver {
	case config.DriverVirtual:
		tag, err := virtual.NewTag(cfg.Reader.TagType, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("virtual reader: %w", err)
		}
		logger.Info().Str("type", tag.Type).Str("uid", tag.UIDString()).Msg("virtual tag in field")
		return virtual.NewReader(tag), func() {}, nil

	case config.DriverPN532UART:
		transport, err := pn532.OpenUART(cfg.Reader.Device)
		if err != nil {
			return nil, nil, err
		}
		transport.SetTimeout(cfg.Reader.Timeout)
		return newPN532(ctx, transport, cfg, logger)

	case config.DriverPN532I2C:
		transport, err := pn532.OpenI2C(cfg.Reader.Device)
		if err != nil {
			return nil, nil, err
		}
		transport.SetTimeout(cfg.Reader.Timeout)
		return newPN532(ctx, transport, cfg, logger)

	default:
		return nil, nil, fmt.Errorf("unsupported reader driver: %s", cfg.Reader.Driver)
	}
}

// verifyRetries is the number of rewrites of a page that reads back wrong
const verifyRetries = 2

func newPN532(
	ctx context.Context, transport pn532.Transport, cfg config.Config, logger zerolog.Logger,
) (tagserial.TagTransport, func(), error) {
	opts := []pn532.Option{pn532.WithLogger(logger)}
	if cfg.Reader.VerifyWrites {
		opts = append(opts, pn532.WithVerifyWrites(verifyRetries))
	}

	reader, err := pn532.NewReader(ctx, transport, opts...)
	if err != nil {
		return nil, nil, err
	}

	if version, err := reader.Device().FirmwareVersion(ctx); err == nil {
		logger.Info().Str("firmware", version.Version).Msg("PN532 ready")
	}

	return reader, func() {
		if err := reader.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close reader")
		}
	}, nil
}

func openConsole(cfg config.Config) (consoleCloser, error) {
	if cfg.Console.Device == config.ConsoleStdin {
		port, err := console.OpenTerminal()
		if err != nil {
			return nil, fmt.Errorf("open terminal console: %w", err)
		}
		return port, nil
	}

	port, err := console.OpenSerial(cfg.Console.Device, cfg.Console.Baud)
	if err != nil {
		return nil, err
	}
	return port, nil
}
