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

package protocol

import (
	"fmt"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

// PayloadBuffer is a fixed-size payload accumulator. Appends past the limit
// are rejected instead of growing or overwriting.
type PayloadBuffer struct {
	buf   [MaxCapacity]byte
	pos   int
	limit int
}

// NewPayloadBuffer creates a PayloadBuffer accepting up to limit bytes.
// The limit is clamped to [0, MaxCapacity].
func NewPayloadBuffer(limit int) *PayloadBuffer {
	return &PayloadBuffer{limit: clampCapacity(limit)}
}

// Append adds one byte, failing with ErrPayloadTooLarge when full
func (p *PayloadBuffer) Append(b byte) error {
	if p.pos >= p.limit {
		return fmt.Errorf("append byte %d of %d: %w", p.pos+1, p.limit, tagserial.ErrPayloadTooLarge)
	}
	p.buf[p.pos] = b
	p.pos++
	return nil
}

// Len returns the number of bytes accumulated
func (p *PayloadBuffer) Len() int {
	return p.pos
}

// Bytes returns a copy of the accumulated bytes
func (p *PayloadBuffer) Bytes() []byte {
	out := make([]byte, p.pos)
	copy(out, p.buf[:p.pos])
	return out
}

func clampCapacity(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxCapacity:
		return MaxCapacity
	default:
		return n
	}
}
