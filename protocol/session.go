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

// Package protocol implements the serial command state machine. A Session
// consumes the input stream one byte at a time and reports what should be
// printed or done as Effects; it never touches I/O itself.
package protocol

import (
	"fmt"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

// Command bytes
const (
	CmdRead   byte = 'r'
	CmdWrite  byte = 'w'
	CmdPing   byte = 'p'
	CmdCancel byte = 'c'
)

const (
	// LengthDigits is the size of the decimal length prefix of a write
	LengthDigits = 3

	// MaxCapacity is the largest payload a 3-digit length can announce
	MaxCapacity = 999

	// DefaultCapacity is the payload buffer size of a new Session
	DefaultCapacity = MaxCapacity
)

// Mode is the externally visible state of a Session
type Mode int

const (
	// ModeIdle dispatches single-byte commands
	ModeIdle Mode = iota
	// ModeAwaitingLength collects the 3-digit length prefix
	ModeAwaitingLength
	// ModeAccumulating collects payload bytes
	ModeAccumulating
	// ModeAwaitingTagForWrite holds a complete payload until a tag is presented
	ModeAwaitingTagForWrite
	// ModeDispatchRead is idle with a read armed for the next presented tag
	ModeDispatchRead
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeAwaitingLength:
		return "AwaitingLength"
	case ModeAccumulating:
		return "Accumulating"
	case ModeAwaitingTagForWrite:
		return "AwaitingTagForWrite"
	case ModeDispatchRead:
		return "DispatchRead"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// state is the buffer state machine. Each variant carries only the data
// valid in that state, so mode and buffers always change together.
type state interface {
	mode() Mode
}

type idleState struct{}

type lengthState struct {
	digits [LengthDigits]byte
	n      int
}

type accumulatingState struct {
	payload *PayloadBuffer
	target  int
}

type awaitingTagState struct {
	payload []byte
}

func (idleState) mode() Mode          { return ModeIdle }
func (*lengthState) mode() Mode       { return ModeAwaitingLength }
func (*accumulatingState) mode() Mode { return ModeAccumulating }
func (*awaitingTagState) mode() Mode  { return ModeAwaitingTagForWrite }

// Session is the protocol state of one serial connection.
//
// Thread Safety: Session is NOT thread-safe. It is meant to be owned by the
// goroutine running the poll loop.
type Session struct {
	state       state
	capacity    int
	readPending bool
}

// Option is a functional option for configuring a Session
type Option func(*Session)

// WithCapacity sets the payload buffer size, clamped to [0, MaxCapacity].
// Writes announcing a longer payload are rejected with "payload too large".
func WithCapacity(n int) Option {
	return func(s *Session) {
		s.capacity = clampCapacity(n)
	}
}

// NewSession creates an idle session
func NewSession(opts ...Option) *Session {
	s := &Session{
		state:    idleState{},
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the current mode
func (s *Session) Mode() Mode {
	m := s.state.mode()
	if m == ModeIdle && s.readPending {
		return ModeDispatchRead
	}
	return m
}

// Capacity returns the payload buffer size
func (s *Session) Capacity() int {
	return s.capacity
}

// ReadPending reports whether a read is armed
func (s *Session) ReadPending() bool {
	return s.readPending
}

// LengthBuffer returns a copy of the length digits collected so far
func (s *Session) LengthBuffer() []byte {
	st, ok := s.state.(*lengthState)
	if !ok {
		return nil
	}
	return append([]byte(nil), st.digits[:st.n]...)
}

// TargetLength returns the announced payload length while accumulating or
// awaiting a tag.
func (s *Session) TargetLength() (int, bool) {
	switch st := s.state.(type) {
	case *accumulatingState:
		return st.target, true
	case *awaitingTagState:
		return len(st.payload), true
	default:
		return 0, false
	}
}

// Payload returns a copy of the payload collected so far
func (s *Session) Payload() []byte {
	switch st := s.state.(type) {
	case *accumulatingState:
		return st.payload.Bytes()
	case *awaitingTagState:
		return append([]byte{}, st.payload...)
	default:
		return nil
	}
}

// PendingWrite returns the payload waiting for a tag, if any
func (s *Session) PendingWrite() ([]byte, bool) {
	st, ok := s.state.(*awaitingTagState)
	if !ok {
		return nil, false
	}
	return append([]byte{}, st.payload...), true
}

// Reset returns to Idle, dropping any write in progress. An armed read
// stays armed since it needs no further input.
func (s *Session) Reset() {
	s.state = idleState{}
}

// HandleByte feeds one input byte to the state machine and returns the
// resulting effects; an empty result means nothing to report.
func (s *Session) HandleByte(b byte) []Effect {
	switch st := s.state.(type) {
	case idleState:
		return s.handleIdle(b)
	case *lengthState:
		return s.handleLength(st, b)
	case *accumulatingState:
		return s.handleAccumulating(st, b)
	case *awaitingTagState:
		return s.handleAwaitingTag(b)
	default:
		s.state = idleState{}
		return nil
	}
}

func (s *Session) handleIdle(b byte) []Effect {
	switch {
	case isDigit(b):
		st := &lengthState{}
		return s.pushDigit(st, b)
	case b == CmdRead:
		s.readPending = true
		return []Effect{LogEffect(MsgRead)}
	case b == CmdWrite:
		s.state = &lengthState{}
		return []Effect{LogEffect(MsgWriteHowMuch)}
	case b == CmdPing:
		return []Effect{LogEffect(MsgPong)}
	case b == CmdCancel && s.readPending:
		s.readPending = false
		return []Effect{LogEffect(MsgReadCancelled)}
	default:
		return nil
	}
}

func (s *Session) handleLength(st *lengthState, b byte) []Effect {
	switch {
	case isDigit(b):
		return s.pushDigit(st, b)
	case b == CmdCancel:
		s.state = idleState{}
		return []Effect{LogEffect(MsgWriteCancelled)}
	default:
		return nil
	}
}

// pushDigit appends a length digit. The third digit always moves the session
// out of lengthState, so a fourth digit cannot be stored.
func (s *Session) pushDigit(st *lengthState, b byte) []Effect {
	st.digits[st.n] = b
	st.n++
	if st.n < LengthDigits {
		s.state = st
		return nil
	}
	return s.beginAccumulating(parseLength(st.digits))
}

func (s *Session) beginAccumulating(target int) []Effect {
	if target > s.capacity {
		s.state = idleState{}
		err := fmt.Errorf("length %d over capacity %d: %w", target, s.capacity, tagserial.ErrPayloadTooLarge)
		return []Effect{ErrorEffect(err)}
	}

	effects := []Effect{LogEffect(fmt.Sprintf("now, write %d bytes:", target))}
	if target == 0 {
		return append(effects, s.beginAwaitingTag(nil))
	}

	s.state = &accumulatingState{
		payload: NewPayloadBuffer(s.capacity),
		target:  target,
	}
	return effects
}

func (s *Session) handleAccumulating(st *accumulatingState, b byte) []Effect {
	if err := st.payload.Append(b); err != nil {
		s.state = idleState{}
		return []Effect{ErrorEffect(err)}
	}
	if st.payload.Len() < st.target {
		return nil
	}
	return []Effect{s.beginAwaitingTag(st.payload.Bytes())}
}

func (s *Session) beginAwaitingTag(payload []byte) Effect {
	if payload == nil {
		payload = []byte{}
	}
	s.state = &awaitingTagState{payload: payload}
	return beginWriteEffect(append([]byte{}, payload...))
}

func (s *Session) handleAwaitingTag(b byte) []Effect {
	if b != CmdCancel {
		return nil
	}
	s.state = idleState{}
	return []Effect{LogEffect(MsgWriteCancelled)}
}

// CompleteRead consumes the armed read and reports the text read from the tag
func (s *Session) CompleteRead(text []byte) []Effect {
	s.readPending = false
	return []Effect{completedReadEffect(append([]byte{}, text...))}
}

// FailRead consumes the armed read and reports err
func (s *Session) FailRead(err error) []Effect {
	s.readPending = false
	return []Effect{ErrorEffect(err)}
}

// CompleteWrite finishes the pending write and returns to idle
func (s *Session) CompleteWrite() []Effect {
	if _, ok := s.state.(*awaitingTagState); !ok {
		return nil
	}
	s.state = idleState{}
	return []Effect{LogEffect(MsgDoneWriting)}
}

// FailWrite aborts the pending write, reports err and returns to idle
func (s *Session) FailWrite(err error) []Effect {
	if _, ok := s.state.(*awaitingTagState); !ok {
		return nil
	}
	s.state = idleState{}
	return []Effect{ErrorEffect(err)}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func parseLength(digits [LengthDigits]byte) int {
	n := 0
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	return n
}
