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

// Package virtual provides an in-memory tag reader. Tags are modelled page by
// page like NTAG21x memory so the same TLV and capacity rules apply as on a
// real reader.
package virtual

import (
	"encoding/hex"
	"fmt"
	"sync"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

// PageSize is the NTAG21x page size in bytes
const PageSize = 4

const (
	// FirstUserPage is the first page of NDEF user memory
	FirstUserPage = 4

	ccPage  = 3
	ccMagic = 0xE1
)

// Tag types
const (
	TypeNTAG213  = "NTAG213"
	TypeNTAG215  = "NTAG215"
	TypeNTAG216  = "NTAG216"
	TypeMIFARE1K = "MIFARE1K"
)

// layout describes the memory of one tag type
type layout struct {
	pages    int
	userSize int
}

var layouts = map[string]layout{
	TypeNTAG213:  {pages: 45, userSize: 144},
	TypeNTAG215:  {pages: 135, userSize: 504},
	TypeNTAG216:  {pages: 231, userSize: 888},
	TypeMIFARE1K: {pages: 256, userSize: 0},
}

// DefaultUID is used when a tag is created without a UID
var DefaultUID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}

// Tag is a simulated tag
type Tag struct {
	Type  string
	UID   []byte
	pages [][PageSize]byte
	mu    sync.Mutex
}

// NewNTAG213 creates a blank NTAG213 with 144 bytes of user memory
func NewNTAG213(uid []byte) *Tag {
	return newTag(TypeNTAG213, uid)
}

// NewNTAG215 creates a blank NTAG215 with 504 bytes of user memory
func NewNTAG215(uid []byte) *Tag {
	return newTag(TypeNTAG215, uid)
}

// NewNTAG216 creates a blank NTAG216 with 888 bytes of user memory
func NewNTAG216(uid []byte) *Tag {
	return newTag(TypeNTAG216, uid)
}

// NewMIFARE1K creates a MIFARE Classic 1K tag. Readers reject it as unsupported.
func NewMIFARE1K(uid []byte) *Tag {
	if uid == nil {
		uid = []byte{0x12, 0x34, 0x56, 0x78}
	}
	return newTag(TypeMIFARE1K, uid)
}

// NewTag creates a tag of the named type
func NewTag(tagType string, uid []byte) (*Tag, error) {
	if _, ok := layouts[tagType]; !ok {
		return nil, fmt.Errorf("unknown tag type %q", tagType)
	}
	return newTag(tagType, uid), nil
}

func newTag(tagType string, uid []byte) *Tag {
	if uid == nil {
		uid = DefaultUID
	}
	l := layouts[tagType]
	t := &Tag{
		Type:  tagType,
		UID:   append([]byte(nil), uid...),
		pages: make([][PageSize]byte, l.pages),
	}

	copy(t.pages[0][:3], t.UID)
	if len(t.UID) > 3 {
		copy(t.pages[1][:], t.UID[3:])
	}
	if l.userSize > 0 {
		// capability container: magic, version 1.0, size/8, read/write access
		t.pages[ccPage] = [PageSize]byte{ccMagic, 0x10, byte(l.userSize / 8), 0x00}
		// empty NDEF TLV followed by a terminator
		t.pages[FirstUserPage] = [PageSize]byte{0x03, 0x00, 0xFE, 0x00}
	}
	return t
}

// IsNTAG reports whether the tag belongs to the NTAG21x family
func (t *Tag) IsNTAG() bool {
	return layouts[t.Type].userSize > 0
}

// UserSize returns the user memory size announced by the capability container
func (t *Tag) UserSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pages[ccPage][0] != ccMagic {
		return 0
	}
	return int(t.pages[ccPage][2]) * 8
}

// UIDString returns the UID as a hex string
func (t *Tag) UIDString() string {
	return hex.EncodeToString(t.UID)
}

// ReadPage returns four consecutive pages starting at page, wrapping around
// at the end of memory like the NTAG READ command.
func (t *Tag) ReadPage(page int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if page < 0 || page >= len(t.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	out := make([]byte, 0, 4*PageSize)
	for i := 0; i < 4; i++ {
		p := t.pages[(page+i)%len(t.pages)]
		out = append(out, p[:]...)
	}
	return out, nil
}

// WritePage writes one 4-byte page
func (t *Tag) WritePage(page int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(data) != PageSize {
		return fmt.Errorf("page data must be %d bytes, got %d", PageSize, len(data))
	}
	if page < FirstUserPage || page >= FirstUserPage+t.userPages() {
		return fmt.Errorf("page %d is write protected", page)
	}
	copy(t.pages[page][:], data)
	return nil
}

// UserMemory returns a copy of the whole user memory area
func (t *Tag) UserMemory() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]byte, 0, t.userPages()*PageSize)
	for i := 0; i < t.userPages(); i++ {
		out = append(out, t.pages[FirstUserPage+i][:]...)
	}
	return out
}

// SetUserMemory overwrites user memory from its start, zero padding the last
// page. Pages past the data keep their contents.
func (t *Tag) SetUserMemory(data []byte) error {
	userSize := t.userPages() * PageSize
	if len(data) > userSize {
		return fmt.Errorf("%d bytes into %d bytes of user memory: %w",
			len(data), userSize, tagserial.ErrCapacityExceeded)
	}
	for off := 0; off < len(data); off += PageSize {
		var page [PageSize]byte
		copy(page[:], data[off:])
		if err := t.WritePage(FirstUserPage+off/PageSize, page[:]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tag) userPages() int {
	return layouts[t.Type].userSize / PageSize
}
