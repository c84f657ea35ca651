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

package console

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Pipe is an in-memory Console. The host side feeds input with Send and
// collects output with Lines.
type Pipe struct {
	in     bytes.Buffer
	out    bytes.Buffer
	mu     sync.Mutex
	closed bool
}

// NewPipe creates an empty pipe
func NewPipe() *Pipe {
	return &Pipe{}
}

// Send queues input for the next ReadAvailable
func (p *Pipe) Send(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in.WriteString(s)
}

// Close ends the input: reads fail with io.EOF once it is drained. Output
// stays writable.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ReadAvailable implements Console
func (p *Pipe) ReadAvailable() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := append([]byte(nil), p.in.Bytes()...)
	p.in.Reset()
	if len(out) == 0 && p.closed {
		return nil, io.EOF
	}
	return out, nil
}

// WriteLine implements Console
func (p *Pipe) WriteLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.WriteString(line)
	p.out.WriteString(LineEnding)
	return nil
}

// Output returns everything written so far
func (p *Pipe) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.String()
}

// Lines returns the written lines without line endings
func (p *Pipe) Lines() []string {
	out := p.Output()
	if out == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out, LineEnding), LineEnding)
}

var _ Console = (*Pipe)(nil)
