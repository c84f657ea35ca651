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

//go:build linux

package console

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// terminal is stdin/stdout in raw mode with non-blocking reads
type terminal struct {
	saved *unix.Termios
	out   *os.File
	fd    int
}

// OpenTerminal puts the controlling terminal on stdin into raw mode and
// returns it as a Console writing to stdout. Close restores the terminal.
func OpenTerminal() (*Port, error) {
	fd := int(os.Stdin.Fd())
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("stdin is not a terminal: %w", err)
	}

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG | unix.IEXTEN
	raw.Iflag &^= unix.ICRNL | unix.IXON
	// VMIN=0 VTIME=0: read returns immediately with whatever is buffered
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}

	return New(&terminal{fd: fd, saved: saved, out: os.Stdout}), nil
}

func (t *terminal) Read(p []byte) (int, error) {
	n, err := unix.Read(t.fd, p)
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("terminal read: %w", err)
	}
	return n, nil
}

func (t *terminal) Write(p []byte) (int, error) {
	n, err := t.out.Write(p)
	if err != nil {
		return n, fmt.Errorf("terminal write: %w", err)
	}
	return n, nil
}

func (t *terminal) Close() error {
	if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, t.saved); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}
