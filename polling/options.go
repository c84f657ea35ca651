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

package polling

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ZaparooProject/go-tagserial/ndef"
)

// Option is a functional option for configuring a Driver
type Option func(*Driver)

// WithPollInterval sets the time between ticks. Non-positive values keep the
// default.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithLogger sets the diagnostic logger. Console protocol lines never go
// through it.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger.With().Str("component", "driver").Logger()
	}
}

// WithCodec replaces the NDEF text codec
func WithCodec(codec Codec) Option {
	return func(d *Driver) {
		if codec != nil {
			d.codec = codec
		}
	}
}

func defaultCodec() Codec {
	return ndef.NewCodec()
}
