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

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/ZaparooProject/go-tagserial/internal/frame"
	"github.com/ZaparooProject/go-tagserial/internal/retry"
)

const (
	// PN532 7-bit I2C address as used by periph (0x48 write, 0x49 read)
	pn532I2CAddr = 0x24

	// first byte of every I2C read
	pn532Ready = 0x01

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	readyPollInterval = time.Millisecond
)

// Conn is a half-duplex I2C connection to one device
type Conn interface {
	Tx(w, r []byte) error
}

// I2C is a Transport over an I2C bus
type I2C struct {
	conn    Conn
	closer  io.Closer
	name    string
	timeout time.Duration
	mu      sync.Mutex
}

// OpenI2C opens the PN532 on the named I2C bus ("" for the first bus)
func OpenI2C(busName string) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	// ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	t := NewI2C(&i2c.Dev{Addr: pn532I2CAddr, Bus: bus}, busName)
	t.closer = bus
	return t, nil
}

// NewI2C creates an I2C transport on an open connection
func NewI2C(conn Conn, name string) *I2C {
	return &I2C{conn: conn, name: name, timeout: DefaultTimeout}
}

// SetTimeout sets the ACK and response timeout
func (t *I2C) SetTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
}

// SendCommand implements Transport
func (t *I2C) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, fmt.Errorf("command %#02x: %w", cmd, err)
	}
	if err := t.conn.Tx(frm, nil); err != nil {
		return nil, fmt.Errorf("failed to send I2C frame: %w", err)
	}

	if err := t.waitAck(ctx); err != nil {
		return nil, fmt.Errorf("command %#02x on %s: %w", cmd, t.name, err)
	}

	data, err := retry.Do(ctx, retry.Config{
		Description: "receive frame",
		MaxRetries:  maxNackRetries,
		OnRetry:     t.sendNack,
	}, func() ([]byte, bool, error) {
		return t.receiveFrame(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("command %#02x on %s: %w", cmd, t.name, err)
	}

	if err := t.conn.Tx(frame.AckFrame, nil); err != nil {
		return nil, fmt.Errorf("failed to send ACK: %w", err)
	}
	return data, nil
}

// Close implements Transport
func (t *I2C) Close() error {
	if t.closer == nil {
		return nil
	}
	if err := t.closer.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus %q: %w", t.name, err)
	}
	return nil
}

// waitReady polls the status byte until the PN532 has data
func (t *I2C) waitReady(ctx context.Context) error {
	status := make([]byte, 1)
	_, err := retry.Until(ctx, t.timeout, readyPollInterval, func() (struct{}, bool, error) {
		if err := t.conn.Tx(nil, status); err != nil {
			return struct{}{}, false, fmt.Errorf("I2C ready check failed: %w", err)
		}
		return struct{}{}, status[0] != pn532Ready, nil
	})
	return err
}

// read reads n bytes following the status byte
func (t *I2C) read(n int) ([]byte, error) {
	buf := make([]byte, n+1)
	if err := t.conn.Tx(nil, buf); err != nil {
		return nil, fmt.Errorf("I2C read failed: %w", err)
	}
	if buf[0] != pn532Ready {
		return nil, fmt.Errorf("status %#02x: %w", buf[0], ErrNoResponse)
	}
	return buf[1:], nil
}

func (t *I2C) waitAck(ctx context.Context) error {
	if err := t.waitReady(ctx); err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			return ErrNoAck
		}
		return err
	}
	buf, err := t.read(len(frame.AckFrame))
	if err != nil {
		return err
	}
	if !frame.IsAck(buf) {
		return fmt.Errorf("% x: %w", buf, ErrNoAck)
	}
	return nil
}

func (t *I2C) receiveFrame(ctx context.Context) (data []byte, nack bool, err error) {
	if err := t.waitReady(ctx); err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			return nil, false, ErrNoResponse
		}
		return nil, false, err
	}

	buf, err := t.read(frame.MaxDataLength + frame.Overhead)
	if err != nil {
		return nil, false, err
	}

	data, _, err = frame.Parse(buf, frame.Pn532ToHost)
	switch {
	case err == nil:
		return data, false, nil
	case errors.Is(err, frame.ErrNoFrame), errors.Is(err, frame.ErrIncomplete):
		return nil, false, fmt.Errorf("% x: %w", buf[:min(len(buf), 8)], ErrUnexpectedResponse)
	default:
		return nil, true, nil
	}
}

func (t *I2C) sendNack() error {
	if err := t.conn.Tx(frame.NackFrame, nil); err != nil {
		return fmt.Errorf("failed to send NACK: %w", err)
	}
	return nil
}

var _ Transport = (*I2C)(nil)
