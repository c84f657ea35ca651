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

package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []byte
		want []byte
		cmd  byte
	}{
		{
			name: "GetFirmwareVersion",
			cmd:  0x02,
			want: []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00},
		},
		{
			name: "SAMConfiguration",
			cmd:  0x14,
			args: []byte{0x01, 0x14, 0x01},
			want: []byte{0x00, 0x00, 0xFF, 0x05, 0xFB, 0xD4, 0x14, 0x01, 0x14, 0x01, 0x02, 0x00},
		},
		{
			name: "InListPassiveTarget",
			cmd:  0x4A,
			args: []byte{0x01, 0x00},
			want: []byte{0x00, 0x00, 0xFF, 0x04, 0xFC, 0xD4, 0x4A, 0x01, 0x00, 0xE1, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Build(tt.cmd, tt.args)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Build() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestBuild_TooLarge(t *testing.T) {
	t.Parallel()
	if _, err := Build(0x40, make([]byte, 254)); !errors.Is(err, ErrDataTooLarge) {
		t.Errorf("Build() error = %v, want ErrDataTooLarge", err)
	}
	if _, err := Build(0x40, make([]byte, 253)); err != nil {
		t.Errorf("Build() error = %v for largest frame", err)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()
	data := []byte{0x00, 0x01, 0x02, 0x03, 0xFE, 0xFF}
	frm, err := BuildResponse(0x40, data)
	if err != nil {
		t.Fatal(err)
	}
	// leading noise and a trailing byte from the next frame
	stream := append([]byte{0x55, 0x00}, frm...)
	stream = append(stream, 0x00)

	got, n, err := Parse(stream, Pn532ToHost)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := append([]byte{0x41}, data...)
	if !bytes.Equal(got, want) {
		t.Errorf("Parse() = % x, want % x", got, want)
	}
	if n != len(frm)+2 {
		t.Errorf("Parse() consumed %d, want %d", n, len(frm)+2)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	valid, _ := BuildResponse(0x02, []byte{0x32, 0x01, 0x06, 0x07})

	badDCS := append([]byte(nil), valid...)
	badDCS[len(badDCS)-2]++

	badLCS := append([]byte(nil), valid...)
	badLCS[4]++

	tests := []struct {
		want error
		name string
		buf  []byte
		tfi  byte
	}{
		{name: "empty", buf: nil, tfi: Pn532ToHost, want: ErrNoFrame},
		{name: "noise", buf: []byte{0x55, 0x55, 0x01}, tfi: Pn532ToHost, want: ErrNoFrame},
		{name: "header only", buf: []byte{0x00, 0x00, 0xFF, 0x06}, tfi: Pn532ToHost, want: ErrIncomplete},
		{name: "partial body", buf: valid[:8], tfi: Pn532ToHost, want: ErrIncomplete},
		{name: "ack", buf: AckFrame, tfi: Pn532ToHost, want: ErrAck},
		{name: "nack", buf: NackFrame, tfi: Pn532ToHost, want: ErrNack},
		{name: "length checksum", buf: badLCS, tfi: Pn532ToHost, want: ErrLengthChecksum},
		{name: "data checksum", buf: badDCS, tfi: Pn532ToHost, want: ErrDataChecksum},
		{name: "wrong direction", buf: valid, tfi: HostToPn532, want: ErrInvalidTFI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := Parse(tt.buf, tt.tfi); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_AckConsumed(t *testing.T) {
	t.Parallel()
	resp, _ := BuildResponse(0x14, nil)
	stream := append(append([]byte(nil), AckFrame...), resp...)

	_, n, err := Parse(stream, Pn532ToHost)
	if !errors.Is(err, ErrAck) || n != len(AckFrame) {
		t.Fatalf("Parse() = %d, %v, want ACK of %d bytes", n, err, len(AckFrame))
	}
	got, _, err := Parse(stream[n:], Pn532ToHost)
	if err != nil || !bytes.Equal(got, []byte{0x15}) {
		t.Errorf("Parse() = % x, %v", got, err)
	}
	if !IsAck(stream) || IsNack(stream) {
		t.Error("IsAck/IsNack mismatch")
	}
}
