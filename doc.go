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

/*
Package tagserial bridges a serial byte stream to an NFC tag reader, exposing a
small command protocol to read and write NDEF text records on a presented tag.

The root package holds the contracts shared by the rest of the module: the
TagTransport interface implemented by readers, the Tag value they return and
the error taxonomy used across the protocol.

Protocol:

Input is a raw byte stream with no framing. In the idle state the following
bytes are commands:

	p        answer "log: pong"
	r        arm a read; the next presented tag is read and printed
	w        start a write; expects a 3-digit length followed by the payload
	0-9      start a write directly with the first length digit
	c        cancel an armed read or an unfinished write

Output is line oriented:

	log: <message>       status and progress
	error: <message>     failures, the session is back to idle
	tag: <NNN> <text>    read result, NNN is the zero-padded text length

Writing "hello" and reading it back:

	w005hello   -> log: write; how much?
	               log: now, write 5 bytes:
	               log: begin writing; put in card
	               log: done writing          (once a tag is presented)
	r           -> log: read
	               tag: 005 hello

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-tagserial/console"
	    "github.com/ZaparooProject/go-tagserial/polling"
	    "github.com/ZaparooProject/go-tagserial/protocol"
	    "github.com/ZaparooProject/go-tagserial/reader/virtual"
	)

	con, err := console.OpenSerial("/dev/ttyACM0", 115200)
	if err != nil {
	    log.Fatal(err)
	}
	defer con.Close()

	session := protocol.NewSession()
	driver := polling.NewDriver(session, virtual.NewReader(virtual.NewNTAG213(nil)), con)

	// Run blocks until the context is cancelled.
	if err := driver.Run(ctx); err != nil {
	    log.Fatal(err)
	}

Thread Safety:

A Session and its Driver are meant to be owned by a single goroutine. Tag
transports are not required to be thread-safe.
*/
package tagserial
