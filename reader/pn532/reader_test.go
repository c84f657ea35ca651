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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/internal/simulator"
	"github.com/ZaparooProject/go-tagserial/ndef"
	"github.com/ZaparooProject/go-tagserial/reader/virtual"
)

type transportCase struct {
	open func(sim *simulator.PN532) Transport
	name string
}

var transportCases = []transportCase{
	{name: "uart", open: func(sim *simulator.PN532) Transport { return NewUART(sim, "sim") }},
	{name: "i2c", open: func(sim *simulator.PN532) Transport { return NewI2C(sim, "sim") }},
}

func newSimReader(
	t *testing.T, tc transportCase, tag *virtual.Tag, opts ...Option,
) (*Reader, *virtual.Reader, *simulator.PN532) {
	t.Helper()
	field := virtual.NewReader(tag)
	sim := simulator.New(field)
	r, err := NewReader(context.Background(), tc.open(sim), opts...)
	require.NoError(t, err)
	return r, field, sim
}

func TestNewReader_Init(t *testing.T) {
	t.Parallel()
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, sim := newSimReader(t, tc, nil)

			assert.Equal(t, []byte{
				simulator.CmdSAMConfiguration,
				simulator.CmdRFConfiguration,
				simulator.CmdGetFirmwareVersion,
			}, sim.CommandLog())
		})
	}
}

func TestDevice_FirmwareVersion(t *testing.T) {
	t.Parallel()
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r, _, _ := newSimReader(t, tc, nil)

			fv, err := r.Device().FirmwareVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "1.6", fv.Version)
			assert.True(t, fv.SupportIso14443a)
			assert.True(t, fv.SupportIso14443b)
			assert.True(t, fv.SupportIso18092)
		})
	}
}

func TestReader_TagPresent(t *testing.T) {
	t.Parallel()
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			r, field, _ := newSimReader(t, tc, nil)

			assert.False(t, r.TagPresent(ctx))
			field.Insert(virtual.NewNTAG213(nil))
			assert.True(t, r.TagPresent(ctx))
			field.Remove()
			assert.False(t, r.TagPresent(ctx))
		})
	}
}

func TestReader_WriteThenRead(t *testing.T) {
	t.Parallel()
	texts := []string{"hello", strings.Repeat("n", 100), strings.Repeat("m", 400)}
	for _, tc := range transportCases {
		for _, text := range texts {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				ctx := context.Background()
				tag := virtual.NewNTAG215([]byte{0x04, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66})
				r, _, sim := newSimReader(t, tc, tag)
				codec := ndef.NewCodec()

				encoded, err := codec.Encode([]byte(text))
				require.NoError(t, err)
				require.True(t, r.TagPresent(ctx))
				require.NoError(t, r.Write(ctx, encoded))

				got, err := r.Read(ctx)
				require.NoError(t, err)
				assert.Equal(t, "04112233445566", got.UIDString())
				assert.Equal(t, tagserial.SupportedTagFamily, got.Type)
				assert.Equal(t, 504, got.Capacity)

				decoded, err := codec.DecodeText(got.NDEF)
				require.NoError(t, err)
				assert.Equal(t, text, string(decoded))
				assert.Contains(t, sim.CommandLog(), byte(simulator.CmdInRelease))
			})
		}
	}
}

func TestReader_VerifyWrites(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr  error
		name     string
		retries  int
		lost     int
		wantText bool
	}{
		{name: "clean write", retries: 2, wantText: true},
		{name: "lost page rewritten", retries: 2, lost: 2, wantText: true},
		{name: "retries exhausted", retries: 1, lost: 2, wantErr: ErrVerifyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			r, _, sim := newSimReader(t, transportCases[0], virtual.NewNTAG213(nil), WithVerifyWrites(tt.retries))
			codec := ndef.NewCodec()
			encoded, err := codec.Encode([]byte("verify me"))
			require.NoError(t, err)

			sim.LoseWrites(tt.lost)
			err = r.Write(ctx, encoded)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := r.Read(ctx)
			require.NoError(t, err)
			text, err := codec.DecodeText(got.NDEF)
			require.NoError(t, err)
			assert.Equal(t, "verify me", string(text))
		})
	}
}

func TestReader_UnverifiedWriteLosesPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, field, sim := newSimReader(t, transportCases[0], virtual.NewNTAG213(nil))
	encoded, err := ndef.NewCodec().Encode([]byte("lost"))
	require.NoError(t, err)

	sim.LoseWrites(1)
	require.NoError(t, r.Write(ctx, encoded))

	// the first page still holds the blank message
	assert.Equal(t, []byte{0x03, 0x00, 0xFE, 0x00}, field.Current().UserMemory()[:4])
}

func TestReader_ReadStopsAtTerminator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tag := virtual.NewNTAG216(nil)
	encoded, err := ndef.NewCodec().Encode([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, tag.SetUserMemory(encoded))

	r, _, sim := newSimReader(t, transportCases[0], tag)
	before := len(sim.CommandLog())

	_, err = r.Read(ctx)
	require.NoError(t, err)

	var exchanges int
	for _, cmd := range sim.CommandLog()[before:] {
		if cmd == simulator.CmdInDataExchange {
			exchanges++
		}
	}
	// capability container and the first four user pages
	assert.Equal(t, 2, exchanges)
}

func TestReader_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, field, _ := newSimReader(t, tc, nil)
			_, err := r.Read(ctx)
			require.ErrorIs(t, err, tagserial.ErrNoTag)
			require.ErrorIs(t, r.Write(ctx, []byte{0x03, 0x00, 0xFE}), tagserial.ErrNoTag)

			field.Insert(virtual.NewMIFARE1K(nil))
			assert.True(t, r.TagPresent(ctx))
			_, err = r.Read(ctx)
			require.ErrorIs(t, err, tagserial.ErrUnsupportedTag)
			require.ErrorIs(t, r.Write(ctx, []byte{0x03, 0x00, 0xFE}), tagserial.ErrUnsupportedTag)

			field.Insert(virtual.NewNTAG213(nil))
			big, err := ndef.NewCodec().Encode([]byte(strings.Repeat("x", 300)))
			require.NoError(t, err)
			require.ErrorIs(t, r.Write(ctx, big), tagserial.ErrCapacityExceeded)
		})
	}
}

func TestReader_TagLeavesAfterPresenceCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, field, _ := newSimReader(t, transportCases[0], virtual.NewNTAG213(nil))

	require.True(t, r.TagPresent(ctx))
	field.Remove()

	_, err := r.Read(ctx)
	require.ErrorIs(t, err, tagserial.ErrNoTag)
}

func TestReader_MalformedTLV(t *testing.T) {
	t.Parallel()
	tag := virtual.NewNTAG213(nil)
	require.NoError(t, tag.WritePage(virtual.FirstUserPage, []byte{0x03, 0xFF, 0x01, 0x00}))
	r, _, _ := newSimReader(t, transportCases[1], tag)

	_, err := r.Read(context.Background())
	require.ErrorIs(t, err, tagserial.ErrMalformedNDEF)
}

func TestTransport_CorruptedResponseIsRequestedAgain(t *testing.T) {
	t.Parallel()
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r, _, sim := newSimReader(t, tc, nil)

			sim.CorruptResponses(2)
			fv, err := r.Device().FirmwareVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "1.6", fv.Version)
		})
	}
}

func TestTransport_TooManyCorruptedResponses(t *testing.T) {
	t.Parallel()
	r, _, sim := newSimReader(t, transportCases[0], nil)

	sim.CorruptResponses(maxNackRetries + 1)
	_, err := r.Device().FirmwareVersion(context.Background())
	require.Error(t, err)
}

func TestTransport_NoAck(t *testing.T) {
	t.Parallel()
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sim := simulator.New(virtual.NewReader(nil))
			sim.SetSilent(true)
			transport := tc.open(sim)
			switch tr := transport.(type) {
			case *UART:
				tr.SetTimeout(20 * time.Millisecond)
			case *I2C:
				tr.SetTimeout(20 * time.Millisecond)
			}

			_, err := NewReader(context.Background(), transport)
			require.ErrorIs(t, err, ErrNoAck)
		})
	}
}

func TestTarget_TypeName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		want   string
		target Target
	}{
		{target: Target{ATQA: [2]byte{0x00, 0x44}, SAK: 0x00}, want: "NTAG21x"},
		{target: Target{ATQA: [2]byte{0x00, 0x04}, SAK: 0x08}, want: "MIFARE1K"},
		{target: Target{ATQA: [2]byte{0x00, 0x02}, SAK: 0x18}, want: "MIFARE4K"},
		{target: Target{ATQA: [2]byte{0x03, 0x44}, SAK: 0x20}, want: "ISO14443A(SAK 0x20)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.target.TypeName())
			assert.Equal(t, tt.want == "NTAG21x", tt.target.IsNTAG())
		})
	}
}
