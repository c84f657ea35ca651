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

package tagserial

import (
	"context"
	"encoding/hex"
)

// TagTransport defines the interface for the reader side of the bridge.
// This can be implemented by a hardware reader or an in-memory tag.
type TagTransport interface {
	// TagPresent reports whether a tag is in the field. It must not block
	// beyond a single short check; any failure reads as false.
	TagPresent(ctx context.Context) bool

	// Read returns the tag in the field with its NDEF message bytes.
	// Returns ErrNoTag, ErrUnsupportedTag or ErrMalformedNDEF on failure.
	Read(ctx context.Context) (*Tag, error)

	// Write stores an encoded NDEF message (TLV wrapped, terminator
	// included) on the tag in the field. Returns ErrNoTag,
	// ErrUnsupportedTag or ErrCapacityExceeded on failure.
	Write(ctx context.Context, message []byte) error
}

// Tag is a tag produced by a successful read
type Tag struct {
	// Type is the human readable tag type, e.g. "NTAG213"
	Type string
	// UID is the tag identifier
	UID []byte
	// NDEF holds the NDEF message with the TLV framing removed
	NDEF []byte
	// Capacity is the user memory size in bytes, 0 if unknown
	Capacity int
}

// UIDString returns the UID as a lowercase hex string
func (t *Tag) UIDString() string {
	if t == nil {
		return ""
	}
	return hex.EncodeToString(t.UID)
}
