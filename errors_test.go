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
	"errors"
	"fmt"
	"testing"
)

func TestProtocolMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want string
	}{
		{name: "nil error", err: nil, want: ""},
		{name: "unsupported tag", err: ErrUnsupportedTag, want: "tag not of type NTAG21x"},
		{
			name: "wrapped unsupported tag",
			err:  NewTagError("read", "04a1", fmt.Errorf("MIFARE Classic 1K: %w", ErrUnsupportedTag)),
			want: "tag not of type NTAG21x",
		},
		{name: "capacity exceeded", err: NewTagError("write", "", ErrCapacityExceeded), want: "payload too large"},
		{name: "payload too large", err: ErrPayloadTooLarge, want: "payload too large"},
		{name: "malformed NDEF", err: fmt.Errorf("decode: %w", ErrMalformedNDEF), want: "malformed NDEF message"},
		{name: "other error", err: errors.New("serial port gone"), want: "serial port gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ProtocolMessage(tt.err); got != tt.want {
				t.Errorf("ProtocolMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTagError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  *TagError
		name string
		want string
	}{
		{name: "with UID", err: NewTagError("write", "04a1b2", ErrNoTag), want: "write 04a1b2: no tag present"},
		{name: "without UID", err: NewTagError("read", "", ErrMalformedNDEF), want: "read: malformed NDEF message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.err.Err)
			}
		})
	}
}

func TestIsNoTag(t *testing.T) {
	t.Parallel()
	if !IsNoTag(NewTagError("read", "", ErrNoTag)) {
		t.Error("wrapped ErrNoTag not detected")
	}
	if IsNoTag(ErrUnsupportedTag) {
		t.Error("ErrUnsupportedTag reported as no tag")
	}
	if IsNoTag(nil) {
		t.Error("nil reported as no tag")
	}
}

func TestTag_UIDString(t *testing.T) {
	t.Parallel()
	tag := &Tag{UID: []byte{0x04, 0xAB, 0x0C}}
	if got := tag.UIDString(); got != "04ab0c" {
		t.Errorf("UIDString() = %q, want %q", got, "04ab0c")
	}

	var missing *Tag
	if got := missing.UIDString(); got != "" {
		t.Errorf("nil UIDString() = %q, want empty", got)
	}
}
