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

// Package simulator emulates a PN532 at the frame level on top of the
// in-memory tags of reader/virtual. It serves as a serial port for the UART
// transport and as an I2C connection for the I2C transport.
package simulator

import (
	"errors"
	"sync"

	"github.com/ZaparooProject/go-tagserial/internal/frame"
	"github.com/ZaparooProject/go-tagserial/reader/virtual"
)

// Command bytes for reference
const (
	CmdGetFirmwareVersion  = 0x02
	CmdSAMConfiguration    = 0x14
	CmdRFConfiguration     = 0x32
	CmdInDataExchange      = 0x40
	CmdInListPassiveTarget = 0x4A
	CmdInRelease           = 0x52
)

const (
	ntagRead  = 0x30
	ntagWrite = 0xA2

	statusOK      = 0x00
	statusTimeout = 0x01
	statusNAK     = 0x27
)

// PN532 is a simulated reader. The zero value is not usable; call New.
type PN532 struct {
	field *virtual.Reader
	in    []byte
	out   []byte
	last  []byte
	// Commands records every command code received, in order
	Commands []byte
	// corrupt is the number of upcoming responses sent with a bad checksum
	corrupt int
	// lose is the number of upcoming page writes acknowledged but not stored
	lose int
	// silent drops all commands without ACK when set
	silent bool
	mu     sync.Mutex
}

// New creates a simulated PN532 whose RF field is field
func New(field *virtual.Reader) *PN532 {
	return &PN532{field: field}
}

// CorruptResponses sends the next n responses with a broken data checksum
func (p *PN532) CorruptResponses(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corrupt = n
}

// LoseWrites acknowledges the next n page writes without storing them
func (p *PN532) LoseWrites(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lose = n
}

// SetSilent makes the device ignore all input
func (p *PN532) SetSilent(silent bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.silent = silent
}

// CommandLog returns a copy of the received command codes
func (p *PN532) CommandLog() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.Commands...)
}

// Write accepts host bytes
func (p *PN532) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.silent {
		return len(b), nil
	}
	p.in = append(p.in, b...)
	p.process()
	return len(b), nil
}

// Read returns pending device bytes, or (0, nil) when there are none
func (p *PN532) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(b, p.out)
	p.out = p.out[n:]
	return n, nil
}

// Drain is a no-op
func (*PN532) Drain() error { return nil }

// Close is a no-op
func (*PN532) Close() error { return nil }

// Tx implements an I2C transaction. Every read starts with the ready status
// byte; a read of only the status byte does not consume data.
func (p *PN532) Tx(w, r []byte) error {
	if len(w) > 0 {
		if _, err := p.Write(w); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	clear(r)
	if len(p.out) == 0 {
		return nil
	}
	r[0] = 0x01
	if len(r) == 1 {
		return nil
	}
	n := copy(r[1:], p.out)
	p.out = p.out[n:]
	return nil
}

// process handles every complete host frame in the input buffer
func (p *PN532) process() {
	for len(p.in) > 0 {
		data, n, err := frame.Parse(p.in, frame.HostToPn532)
		switch {
		case err == nil:
			p.in = p.in[n:]
			p.handle(data[0], data[1:])
		case errors.Is(err, frame.ErrAck):
			p.in = p.in[n:]
		case errors.Is(err, frame.ErrNack):
			p.in = p.in[n:]
			p.emit(p.last)
		case errors.Is(err, frame.ErrIncomplete):
			return
		case errors.Is(err, frame.ErrNoFrame):
			// keep a trailing zero that may start a frame
			if p.in[len(p.in)-1] == 0x00 {
				p.in = p.in[len(p.in)-1:]
			} else {
				p.in = p.in[:0]
			}
			return
		default:
			p.in = p.in[n:]
		}
	}
}

func (p *PN532) handle(cmd byte, args []byte) {
	p.Commands = append(p.Commands, cmd)

	resp, err := frame.BuildResponse(cmd, p.respond(cmd, args))
	if err != nil {
		return
	}
	p.last = resp
	p.out = append(p.out, frame.AckFrame...)
	p.emit(resp)
}

// emit queues a response frame, breaking its checksum while corruption is armed
func (p *PN532) emit(resp []byte) {
	if len(resp) == 0 {
		return
	}
	if p.corrupt > 0 {
		p.corrupt--
		resp = append([]byte(nil), resp...)
		resp[len(resp)-2]++
	}
	p.out = append(p.out, resp...)
}

func (p *PN532) respond(cmd byte, args []byte) []byte {
	switch cmd {
	case CmdGetFirmwareVersion:
		// PN532 version 1.6, supports ISO14443A/B
		return []byte{0x32, 0x01, 0x06, 0x07}
	case CmdInListPassiveTarget:
		return p.listTarget()
	case CmdInDataExchange:
		if len(args) < 2 {
			return []byte{statusNAK}
		}
		return p.exchange(args[1:])
	case CmdInRelease:
		return []byte{statusOK}
	default:
		return nil
	}
}

func (p *PN532) listTarget() []byte {
	tag := p.field.Current()
	if tag == nil {
		return []byte{0x00}
	}

	// ATQA (Answer To Request Type A), SAK (Select Acknowledge), UID length and UID
	resp := []byte{0x01, 0x01}
	if tag.IsNTAG() {
		resp = append(resp, 0x00, 0x44, 0x00)
	} else {
		resp = append(resp, 0x00, 0x04, 0x08)
	}
	resp = append(resp, byte(len(tag.UID)))
	return append(resp, tag.UID...)
}

func (p *PN532) exchange(data []byte) []byte {
	tag := p.field.Current()
	if tag == nil {
		return []byte{statusTimeout}
	}

	switch {
	case data[0] == ntagRead && len(data) == 2:
		pages, err := tag.ReadPage(int(data[1]))
		if err != nil {
			return []byte{statusNAK}
		}
		return append([]byte{statusOK}, pages...)
	case data[0] == ntagWrite && len(data) == 2+virtual.PageSize:
		if p.lose > 0 {
			p.lose--
			return []byte{statusOK}
		}
		if err := tag.WritePage(int(data[1]), data[2:]); err != nil {
			return []byte{statusNAK}
		}
		return []byte{statusOK}
	default:
		return []byte{statusNAK}
	}
}
