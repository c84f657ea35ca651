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

// Package pn532 reads and writes NTAG21x tags through an NXP PN532 reader
// connected over UART or I2C.
package pn532

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds the wait for an ACK or a response frame
const DefaultTimeout = 250 * time.Millisecond

// maxNackRetries is how often a corrupted response is requested again
const maxNackRetries = 3

// Transport errors
var (
	ErrNoAck              = errors.New("no ACK from PN532")
	ErrNoResponse         = errors.New("no response from PN532")
	ErrUnexpectedResponse = errors.New("unexpected PN532 response")
)

// Transport exchanges command frames with a PN532
type Transport interface {
	// SendCommand sends cmd with args and returns the response frame
	// content following the frame identifier: response code, then data.
	SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error)

	// Close releases the underlying port or bus
	Close() error
}
