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

// Package console provides the byte stream the serial protocol runs on: a
// serial port, the raw terminal, or an in-memory pipe for tests.
package console

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the firmware console speed
	DefaultBaudRate = 115200

	// ReadTimeout bounds each read so a poll never blocks the loop
	ReadTimeout = 10 * time.Millisecond

	// LineEnding terminates every output line
	LineEnding = "\r\n"

	readChunk = 256
)

// Console is the protocol side of the byte stream
type Console interface {
	// ReadAvailable returns the bytes that arrived since the last call,
	// without waiting for more. An empty result means no input.
	ReadAvailable() ([]byte, error)

	// WriteLine writes line followed by LineEnding
	WriteLine(line string) error
}

// Port is a Console over any stream whose reads return (0, nil) when no
// input is pending, such as a serial port with a read timeout.
//
// Thread Safety: WriteLine may be called concurrently with ReadAvailable.
type Port struct {
	rw      io.ReadWriteCloser
	scratch [readChunk]byte
	readMu  sync.Mutex
	writeMu sync.Mutex
}

// New wraps rw as a Console
func New(rw io.ReadWriteCloser) *Port {
	return &Port{rw: rw}
}

// OpenSerial opens a serial port at baud 8N1 for use as the console
func OpenSerial(path string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open console port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}
	return New(port), nil
}

// ReadAvailable implements Console
func (p *Port) ReadAvailable() ([]byte, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	var out []byte
	for {
		n, err := p.rw.Read(p.scratch[:])
		out = append(out, p.scratch[:n]...)
		if err != nil {
			return out, fmt.Errorf("console read: %w", err)
		}
		if n < len(p.scratch) {
			return out, nil
		}
	}
}

// WriteLine implements Console
func (p *Port) WriteLine(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := io.WriteString(p.rw, line+LineEnding); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// Close closes the underlying stream
func (p *Port) Close() error {
	if err := p.rw.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("failed to close console: %w", err)
	}
	return nil
}

var _ Console = (*Port)(nil)
