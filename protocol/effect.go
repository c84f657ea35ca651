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

// Output line prefixes
const (
	PrefixLog   = "log: "
	PrefixError = "error: "
	PrefixTag   = "tag: "
)

// Status messages
const (
	MsgInit           = "init"
	MsgPong           = "pong"
	MsgRead           = "read"
	MsgReadCancelled  = "read cancelled"
	MsgWriteHowMuch   = "write; how much?"
	MsgBeginWriting   = "begin writing; put in card"
	MsgDoneWriting    = "done writing"
	MsgWriteCancelled = "write cancelled"
)

// EffectKind identifies what a session transition asks the caller to do
type EffectKind uint8

const (
	// EffectNone asks for nothing
	EffectNone EffectKind = iota
	// EffectLog prints a status line
	EffectLog
	// EffectError prints an error line
	EffectError
	// EffectBeginTagWrite announces that a payload is ready for the next tag
	EffectBeginTagWrite
	// EffectCompletedRead carries the text read from a tag
	EffectCompletedRead
)

// String returns the effect kind name
func (k EffectKind) String() string {
	switch k {
	case EffectNone:
		return "None"
	case EffectLog:
		return "EmitLog"
	case EffectError:
		return "EmitError"
	case EffectBeginTagWrite:
		return "BeginTagWrite"
	case EffectCompletedRead:
		return "CompletedRead"
	default:
		return fmt.Sprintf("EffectKind(%d)", uint8(k))
	}
}

// Effect is one observable result of a session transition
type Effect struct {
	// Message is the status or error text for log, error and begin-write effects
	Message string
	// Text is the payload for BeginTagWrite and the tag text for CompletedRead
	Text []byte
	Kind EffectKind
}

// Line renders the effect as a console line without line terminator.
// EffectNone renders as the empty string.
func (e Effect) Line() string {
	switch e.Kind {
	case EffectLog, EffectBeginTagWrite:
		return PrefixLog + e.Message
	case EffectError:
		return PrefixError + e.Message
	case EffectCompletedRead:
		return fmt.Sprintf("%s%03d %s", PrefixTag, len(e.Text), e.Text)
	case EffectNone:
		return ""
	default:
		return ""
	}
}

// LogEffect returns a status line effect
func LogEffect(msg string) Effect {
	return Effect{Kind: EffectLog, Message: msg}
}

// ErrorEffect returns an error line effect for err
func ErrorEffect(err error) Effect {
	return Effect{Kind: EffectError, Message: tagserial.ProtocolMessage(err)}
}

func beginWriteEffect(payload []byte) Effect {
	return Effect{Kind: EffectBeginTagWrite, Message: MsgBeginWriting, Text: payload}
}

func completedReadEffect(text []byte) Effect {
	return Effect{Kind: EffectCompletedRead, Text: text}
}
