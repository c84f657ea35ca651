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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

func TestEffect_Line(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		effect Effect
		want   string
	}{
		{name: "none", effect: Effect{}, want: ""},
		{name: "log", effect: LogEffect(MsgPong), want: "log: pong"},
		{name: "error", effect: ErrorEffect(errors.New("reader gone")), want: "error: reader gone"},
		{
			name:   "unsupported tag",
			effect: ErrorEffect(tagserial.NewTagError("read", "04a1", tagserial.ErrUnsupportedTag)),
			want:   "error: tag not of type NTAG21x",
		},
		{name: "begin write", effect: beginWriteEffect([]byte("abc")), want: "log: begin writing; put in card"},
		{name: "read", effect: completedReadEffect([]byte("hello")), want: "tag: 005 hello"},
		{name: "empty read", effect: completedReadEffect(nil), want: "tag: 000 "},
		{
			name:   "long read",
			effect: completedReadEffect([]byte(strings.Repeat("q", 123))),
			want:   "tag: 123 " + strings.Repeat("q", 123),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.effect.Line())
		})
	}
}

func TestEffectKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "None", EffectNone.String())
	assert.Equal(t, "EmitLog", EffectLog.String())
	assert.Equal(t, "EmitError", EffectError.String())
	assert.Equal(t, "BeginTagWrite", EffectBeginTagWrite.String())
	assert.Equal(t, "CompletedRead", EffectCompletedRead.String())
	assert.Equal(t, "EffectKind(9)", EffectKind(9).String())
}
