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

package ndef

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

// TLV block types (NFCForum-TS-Type-2-Tag_1.1)
const (
	TLVNull       = 0x00
	TLVLockCtrl   = 0x01
	TLVMemoryCtrl = 0x02
	TLVMessage    = 0x03
	TLVTerminator = 0xFE

	longLengthMarker = 0xFF
	maxTLVLength     = 0xFFFE
)

// ErrTruncated is returned by UnwrapTLV when the data ends inside the NDEF
// TLV. Readers use it to fetch more pages.
var ErrTruncated = errors.New("NDEF TLV truncated")

// tlvHeader calculates the NDEF TLV header
func tlvHeader(length int) ([]byte, error) {
	// Short format (length < 255)
	if length < longLengthMarker {
		return []byte{TLVMessage, byte(length)}, nil
	}

	// Three byte length format, NFCForum-TS-Type-2-Tag_1.1.pdf page 9
	if length > maxTLVLength {
		return nil, fmt.Errorf("NDEF message of %d bytes: %w", length, tagserial.ErrPayloadTooLarge)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{TLVMessage, longLengthMarker})
	if err := binary.Write(buf, binary.BigEndian, uint16(length)); err != nil {
		return nil, fmt.Errorf("failed to write NDEF length header: %w", err)
	}
	return buf.Bytes(), nil
}

// WrapTLV frames an NDEF message as an NDEF TLV followed by a terminator TLV
func WrapTLV(message []byte) ([]byte, error) {
	header, err := tlvHeader(len(message))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(header)+len(message)+1)
	out = append(out, header...)
	out = append(out, message...)
	out = append(out, TLVTerminator)
	return out, nil
}

// UnwrapTLV walks the TLV blocks in tag user memory and returns the value of
// the first NDEF message TLV. Null TLVs are skipped and other TLVs are
// stepped over using their length.
func UnwrapTLV(data []byte) ([]byte, error) {
	i := 0
	for i < len(data) {
		tlvType := data[i]
		switch tlvType {
		case TLVNull:
			i++
			continue
		case TLVTerminator:
			return nil, fmt.Errorf("terminator before NDEF TLV: %w", tagserial.ErrMalformedNDEF)
		}

		length, headerLen, err := tlvLength(data[i+1:])
		if err != nil {
			return nil, err
		}
		start := i + 1 + headerLen
		end := start + length

		if tlvType == TLVMessage {
			if end > len(data) {
				return nil, ErrTruncated
			}
			out := make([]byte, length)
			copy(out, data[start:end])
			return out, nil
		}
		i = end
	}
	return nil, ErrTruncated
}

// tlvLength parses a one or three byte TLV length field
func tlvLength(data []byte) (length, headerLen int, err error) {
	if len(data) < 1 {
		return 0, 0, ErrTruncated
	}
	if data[0] != longLengthMarker {
		return int(data[0]), 1, nil
	}
	if len(data) < 3 {
		return 0, 0, ErrTruncated
	}
	return int(binary.BigEndian.Uint16(data[1:3])), 3, nil
}
