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
	"sync/atomic"
	"time"
)

// Metrics is a snapshot of driver counters
type Metrics struct {
	Ticks           int64         // Total number of ticks
	BytesProcessed  int64         // Console bytes fed to the session
	Reads           int64         // Successful tag reads
	Writes          int64         // Successful tag writes
	Errors          int64         // Error lines emitted plus console read failures
	LastTickLatency time.Duration // Duration of the last tick
}

type metrics struct {
	ticks           atomic.Int64
	bytes           atomic.Int64
	reads           atomic.Int64
	writes          atomic.Int64
	errors          atomic.Int64
	lastTickLatency atomic.Int64 // in nanoseconds
}

// Metrics returns the current counters
func (d *Driver) Metrics() Metrics {
	return Metrics{
		Ticks:           d.metrics.ticks.Load(),
		BytesProcessed:  d.metrics.bytes.Load(),
		Reads:           d.metrics.reads.Load(),
		Writes:          d.metrics.writes.Load(),
		Errors:          d.metrics.errors.Load(),
		LastTickLatency: time.Duration(d.metrics.lastTickLatency.Load()),
	}
}
