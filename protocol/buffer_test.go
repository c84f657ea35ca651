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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

func TestPayloadBuffer_AppendUntilFull(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero", limit: 0, want: 0},
		{name: "small", limit: 3, want: 3},
		{name: "maximum", limit: MaxCapacity, want: MaxCapacity},
		{name: "clamped high", limit: 5000, want: MaxCapacity},
		{name: "clamped low", limit: -4, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := NewPayloadBuffer(tt.limit)

			for i := 0; i < tt.want; i++ {
				require.NoError(t, buf.Append(byte(i)))
			}
			assert.Equal(t, tt.want, buf.Len())

			err := buf.Append('x')
			require.ErrorIs(t, err, tagserial.ErrPayloadTooLarge)
			assert.Equal(t, tt.want, buf.Len())
		})
	}
}

func TestPayloadBuffer_BytesIsCopy(t *testing.T) {
	t.Parallel()
	buf := NewPayloadBuffer(4)
	require.NoError(t, buf.Append('a'))
	require.NoError(t, buf.Append('b'))

	out := buf.Bytes()
	out[0] = 'z'

	assert.Equal(t, []byte("ab"), buf.Bytes())
	assert.Equal(t, 2, buf.Len())
}
