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

package pn532

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ZaparooProject/go-tagserial/internal/frame"
	"github.com/ZaparooProject/go-tagserial/internal/retry"
)

const (
	// DefaultUARTBaudRate is the PN532 HSU default speed
	DefaultUARTBaudRate = 115200

	uartReadTimeout = 10 * time.Millisecond
	uartChunk       = 64
)

// over uart, pn532 must be (to be safe) "woken up" by sending a 0x55
// dummy byte followed by some padding
var wakeupSequence = []byte{
	0x55, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// SerialPort is the subset of a serial port the UART transport needs
type SerialPort interface {
	io.ReadWriteCloser
	Drain() error
}

// UART is a Transport over the PN532 high speed UART
type UART struct {
	port    SerialPort
	name    string
	pending []byte
	timeout time.Duration
	mu      sync.Mutex
}

// OpenUART opens the PN532 on a serial port
func OpenUART(path string) (*UART, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: DefaultUARTBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PN532 port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(uartReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}
	return NewUART(port, path), nil
}

// NewUART creates a UART transport on an open port. Reads on port must
// return (0, nil) when no data arrives within a short timeout.
func NewUART(port SerialPort, name string) *UART {
	return &UART{port: port, name: name, timeout: DefaultTimeout}
}

// SetTimeout sets the ACK and response timeout
func (u *UART) SetTimeout(timeout time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.timeout = timeout
}

// SendCommand implements Transport
func (u *UART) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, fmt.Errorf("command %#02x: %w", cmd, err)
	}

	u.pending = u.pending[:0]
	if err := u.write(wakeupSequence); err != nil {
		return nil, fmt.Errorf("wakeup: %w", err)
	}
	if err := u.write(frm); err != nil {
		return nil, fmt.Errorf("command %#02x: %w", cmd, err)
	}
	if err := u.waitAck(ctx); err != nil {
		return nil, fmt.Errorf("command %#02x on %s: %w", cmd, u.name, err)
	}

	data, err := retry.Do(ctx, retry.Config{
		Description: "receive frame",
		MaxRetries:  maxNackRetries,
		OnRetry:     func() error { return u.write(frame.NackFrame) },
	}, func() ([]byte, bool, error) {
		return u.receiveFrame(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("command %#02x on %s: %w", cmd, u.name, err)
	}

	// tells the PN532 the response was received ok
	if err := u.write(frame.AckFrame); err != nil {
		return nil, fmt.Errorf("ack: %w", err)
	}
	return data, nil
}

// Close implements Transport
func (u *UART) Close() error {
	if err := u.port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", u.name, err)
	}
	return nil
}

func (u *UART) write(data []byte) error {
	n, err := u.port.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	if err := u.port.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// fill appends whatever the port has to the pending buffer
func (u *UART) fill() error {
	var buf [uartChunk]byte
	n, err := u.port.Read(buf[:])
	u.pending = append(u.pending, buf[:n]...)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return nil
}

func (u *UART) drop(n int) {
	u.pending = append(u.pending[:0], u.pending[n:]...)
}

// waitAck scans the input for an ACK frame. Bytes before it are dropped
// unless they form a complete response frame, which some hosts deliver
// ahead of the ACK.
func (u *UART) waitAck(ctx context.Context) error {
	_, err := retry.Until(ctx, u.timeout, 0, func() (struct{}, bool, error) {
		_, n, err := frame.Parse(u.pending, frame.Pn532ToHost)
		switch {
		case errors.Is(err, frame.ErrAck):
			u.drop(n)
			return struct{}{}, false, nil
		case err == nil:
			return struct{}{}, false, nil
		case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoFrame):
			return struct{}{}, true, u.fill()
		default:
			u.drop(n)
			return struct{}{}, true, nil
		}
	})
	if errors.Is(err, retry.ErrTimeout) {
		return ErrNoAck
	}
	return err
}

// receiveFrame waits for one response frame. It asks for a NACK retry when
// the frame arrived corrupted.
func (u *UART) receiveFrame(ctx context.Context) (data []byte, nack bool, err error) {
	type result struct {
		data []byte
		nack bool
	}
	r, err := retry.Until(ctx, u.timeout, 0, func() (result, bool, error) {
		data, n, err := frame.Parse(u.pending, frame.Pn532ToHost)
		switch {
		case err == nil:
			u.drop(n)
			return result{data: data}, false, nil
		case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoFrame):
			return result{}, true, u.fill()
		case errors.Is(err, frame.ErrAck):
			u.drop(n)
			return result{}, true, nil
		default:
			u.drop(n)
			return result{nack: true}, false, nil
		}
	})
	if errors.Is(err, retry.ErrTimeout) {
		return nil, false, ErrNoResponse
	}
	return r.data, r.nack, err
}

var _ Transport = (*UART)(nil)
