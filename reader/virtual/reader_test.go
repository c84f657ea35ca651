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

package virtual

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/ndef"
)

func TestTag_Layout(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tag      *Tag
		name     string
		userSize int
	}{
		{name: "NTAG213", tag: NewNTAG213(nil), userSize: 144},
		{name: "NTAG215", tag: NewNTAG215(nil), userSize: 504},
		{name: "NTAG216", tag: NewNTAG216(nil), userSize: 888},
		{name: "MIFARE1K", tag: NewMIFARE1K(nil), userSize: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.userSize, tt.tag.UserSize())
			assert.Len(t, tt.tag.UserMemory(), tt.userSize)
			assert.Equal(t, tt.userSize > 0, tt.tag.IsNTAG())
		})
	}
}

func TestTag_ReadPageWraps(t *testing.T) {
	t.Parallel()
	tag := NewNTAG213([]byte{1, 2, 3, 4, 5, 6, 7})

	data, err := tag.ReadPage(44)
	require.NoError(t, err)
	require.Len(t, data, 16)
	// pages 0..2 follow the last page
	assert.Equal(t, []byte{1, 2, 3}, data[4:7])

	_, err = tag.ReadPage(45)
	assert.Error(t, err)
}

func TestTag_WritePageProtection(t *testing.T) {
	t.Parallel()
	tag := NewNTAG213(nil)

	require.Error(t, tag.WritePage(3, []byte{0, 0, 0, 0}))
	require.Error(t, tag.WritePage(4+36, []byte{0, 0, 0, 0}))
	require.Error(t, tag.WritePage(4, []byte{0, 0}))
	require.NoError(t, tag.WritePage(39, []byte{9, 9, 9, 9}))

	mem := tag.UserMemory()
	assert.Equal(t, []byte{9, 9, 9, 9}, mem[len(mem)-4:])
}

func TestNewTag_Unknown(t *testing.T) {
	t.Parallel()
	_, err := NewTag("ULTRALIGHT-C", nil)
	require.Error(t, err)

	tag, err := NewTag(TypeNTAG215, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultUID, tag.UID)
}

func TestReader_NoTag(t *testing.T) {
	t.Parallel()
	r := NewReader(nil)
	ctx := context.Background()

	assert.False(t, r.TagPresent(ctx))
	_, err := r.Read(ctx)
	require.ErrorIs(t, err, tagserial.ErrNoTag)
	require.ErrorIs(t, r.Write(ctx, []byte{0x03, 0x00, 0xFE}), tagserial.ErrNoTag)
}

func TestReader_InsertRemove(t *testing.T) {
	t.Parallel()
	r := NewReader(nil)
	tag := NewNTAG213(nil)

	r.Insert(tag)
	assert.True(t, r.TagPresent(context.Background()))
	assert.Same(t, tag, r.Remove())
	assert.False(t, r.TagPresent(context.Background()))
	assert.Nil(t, r.Remove())
}

func TestReader_WriteThenRead(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tag  *Tag
		name string
		text string
	}{
		{name: "short", tag: NewNTAG213(nil), text: "hello"},
		{name: "fills NTAG213", tag: NewNTAG213(nil), text: strings.Repeat("a", 134)},
		{name: "long TLV", tag: NewNTAG215(nil), text: strings.Repeat("b", 300)},
		{name: "NTAG216", tag: NewNTAG216(nil), text: strings.Repeat("c", 860)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			r := NewReader(tt.tag)
			codec := ndef.NewCodec()

			encoded, err := codec.Encode([]byte(tt.text))
			require.NoError(t, err)
			require.NoError(t, r.Write(ctx, encoded))

			got, err := r.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.tag.Type, got.Type)
			assert.Equal(t, tt.tag.UserSize(), got.Capacity)

			text, err := codec.DecodeText(got.NDEF)
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(text))
		})
	}
}

func TestReader_CapacityExceeded(t *testing.T) {
	t.Parallel()
	r := NewReader(NewNTAG213(nil))

	encoded, err := ndef.NewCodec().Encode([]byte(strings.Repeat("x", 200)))
	require.NoError(t, err)

	err = r.Write(context.Background(), encoded)
	require.ErrorIs(t, err, tagserial.ErrCapacityExceeded)
}

func TestReader_Unsupported(t *testing.T) {
	t.Parallel()
	r := NewReader(NewMIFARE1K(nil))
	ctx := context.Background()

	assert.True(t, r.TagPresent(ctx))
	_, err := r.Read(ctx)
	require.ErrorIs(t, err, tagserial.ErrUnsupportedTag)
	require.ErrorIs(t, r.Write(ctx, []byte{0x03, 0x00, 0xFE}), tagserial.ErrUnsupportedTag)
}

func TestReader_BlankTag(t *testing.T) {
	t.Parallel()
	r := NewReader(NewNTAG213(nil))

	got, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.NDEF)

	_, err = ndef.NewCodec().DecodeText(got.NDEF)
	require.ErrorIs(t, err, tagserial.ErrMalformedNDEF)
}

func TestReader_TruncatedTLV(t *testing.T) {
	t.Parallel()
	tag := NewNTAG213(nil)
	require.NoError(t, tag.WritePage(FirstUserPage, []byte{0x03, 0xF0, 0xD1, 0x01}))

	_, err := NewReader(tag).Read(context.Background())
	require.ErrorIs(t, err, tagserial.ErrMalformedNDEF)
}

func TestReader_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(NewNTAG213(nil))

	_, err := r.Read(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, r.Write(ctx, nil), context.Canceled)
}
