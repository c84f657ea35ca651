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

// Package frame builds and parses PN532 normal information frames
package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame direction constants - these indicate the direction of data flow
const (
	HostToPn532 = 0xD4 // Commands from host to PN532
	Pn532ToHost = 0xD5 // Responses from PN532 to host
)

// Frame markers and control bytes
const (
	Preamble   = 0x00 // Frame preamble byte
	StartCode1 = 0x00 // Start code byte 1
	StartCode2 = 0xFF // Start code byte 2
	Postamble  = 0x00 // Frame postamble byte
)

// Frame size limits
const (
	MaxDataLength = 255 // TFI + command + arguments in a normal frame
	Overhead      = 7   // preamble, start code, LEN, LCS, DCS, postamble
)

// ACK and NACK frames - these are used for flow control
var (
	AckFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NackFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

// Frame errors
var (
	ErrDataTooLarge   = errors.New("data too large for normal frame")
	ErrNoFrame        = errors.New("no frame found")
	ErrIncomplete     = errors.New("frame incomplete")
	ErrLengthChecksum = errors.New("invalid frame length checksum")
	ErrDataChecksum   = errors.New("invalid frame data checksum")
	ErrInvalidTFI     = errors.New("unexpected frame identifier")

	// ErrAck and ErrNack are returned by Parse for flow control frames
	ErrAck  = errors.New("ACK frame")
	ErrNack = errors.New("NACK frame")
)

// CalculateChecksum returns the 8-bit sum of data
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// ChecksumValid reports whether data, including its trailing checksum byte,
// sums to zero.
func ChecksumValid(data []byte) bool {
	return CalculateChecksum(data) == 0
}

// CalculateLengthChecksum returns LCS, the two's complement of length
func CalculateLengthChecksum(length byte) byte {
	return ^length + 1
}

// CalculateDataChecksum returns DCS for a frame identifier and its data
func CalculateDataChecksum(tfi byte, data []byte) byte {
	return ^(tfi + CalculateChecksum(data)) + 1
}

// Build returns the host frame carrying cmd and args
func Build(cmd byte, args []byte) ([]byte, error) {
	return build(HostToPn532, cmd, args)
}

// BuildResponse returns the PN532 frame answering cmd with data
func BuildResponse(cmd byte, data []byte) ([]byte, error) {
	return build(Pn532ToHost, cmd+1, data)
}

func build(tfi, code byte, data []byte) ([]byte, error) {
	dataLen := 2 + len(data)
	if dataLen > MaxDataLength {
		return nil, fmt.Errorf("%d bytes: %w", dataLen, ErrDataTooLarge)
	}

	body := make([]byte, 0, dataLen-1)
	body = append(body, code)
	body = append(body, data...)

	frm := make([]byte, 0, dataLen+Overhead-1)
	frm = append(frm, Preamble, StartCode1, StartCode2, byte(dataLen), CalculateLengthChecksum(byte(dataLen)), tfi)
	frm = append(frm, body...)
	frm = append(frm, CalculateDataChecksum(tfi, body), Postamble)
	return frm, nil
}

// IsAck reports whether buf starts with an ACK frame
func IsAck(buf []byte) bool {
	return bytes.HasPrefix(buf, AckFrame)
}

// IsNack reports whether buf starts with a NACK frame
func IsNack(buf []byte) bool {
	return bytes.HasPrefix(buf, NackFrame)
}

// Parse finds the first information frame in buf sent with frame identifier
// tfi. It returns the bytes following the TFI (command or response code and
// data) and the number of bytes of buf consumed through the postamble.
//
// ErrIncomplete means more bytes are needed. ACK, NACK, checksum and TFI
// errors report how many bytes to drop before looking at the rest.
func Parse(buf []byte, tfi byte) (data []byte, consumed int, err error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 {
		return nil, 0, ErrNoFrame
	}
	off := start + 2
	if len(buf) < off+2 {
		return nil, 0, ErrIncomplete
	}

	switch {
	case buf[off] == 0x00 && buf[off+1] == 0xFF:
		return nil, skipPostamble(buf, off+2), ErrAck
	case buf[off] == 0xFF && buf[off+1] == 0x00:
		return nil, skipPostamble(buf, off+2), ErrNack
	}

	length := int(buf[off])
	if byte(length)+buf[off+1] != 0 {
		return nil, off + 2, ErrLengthChecksum
	}
	if length == 0 {
		return nil, off + 2, fmt.Errorf("empty frame: %w", ErrLengthChecksum)
	}

	body := off + 2
	end := body + length + 1 // data plus DCS
	if len(buf) < end {
		return nil, 0, ErrIncomplete
	}
	if !ChecksumValid(buf[body:end]) {
		return nil, end, ErrDataChecksum
	}
	if buf[body] != tfi {
		return nil, end, fmt.Errorf("%w: got %#02x", ErrInvalidTFI, buf[body])
	}

	out := make([]byte, length-1)
	copy(out, buf[body+1:end-1])
	return out, skipPostamble(buf, end), nil
}

func skipPostamble(buf []byte, off int) int {
	if off < len(buf) && buf[off] == Postamble {
		return off + 1
	}
	return off
}
