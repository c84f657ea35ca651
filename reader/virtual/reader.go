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
	"errors"
	"fmt"
	"sync"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/ndef"
)

// Reader is an in-memory TagTransport holding at most one tag in its field.
//
// Thread Safety: Reader is safe for concurrent use, so tests and the CLI can
// insert and remove tags while the poll loop runs.
type Reader struct {
	tag *Tag
	mu  sync.Mutex
}

// NewReader creates a reader with tag in its field. tag may be nil.
func NewReader(tag *Tag) *Reader {
	return &Reader{tag: tag}
}

// Insert places tag in the field, replacing any previous tag
func (r *Reader) Insert(tag *Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tag = tag
}

// Remove takes the tag out of the field and returns it
func (r *Reader) Remove() *Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := r.tag
	r.tag = nil
	return tag
}

// Current returns the tag in the field, or nil
func (r *Reader) Current() *Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tag
}

// TagPresent implements tagserial.TagTransport
func (r *Reader) TagPresent(_ context.Context) bool {
	return r.Current() != nil
}

// Read implements tagserial.TagTransport
func (r *Reader) Read(ctx context.Context) (*tagserial.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read cancelled: %w", err)
	}
	tag, err := r.ntag("read")
	if err != nil {
		return nil, err
	}

	message, err := ndef.UnwrapTLV(tag.UserMemory())
	if err != nil {
		if errors.Is(err, ndef.ErrTruncated) {
			err = fmt.Errorf("%w: %w", tagserial.ErrMalformedNDEF, err)
		}
		return nil, tagserial.NewTagError("read", tag.UIDString(), err)
	}

	return &tagserial.Tag{
		Type:     tag.Type,
		UID:      append([]byte(nil), tag.UID...),
		NDEF:     message,
		Capacity: tag.UserSize(),
	}, nil
}

// Write implements tagserial.TagTransport
func (r *Reader) Write(ctx context.Context, message []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write cancelled: %w", err)
	}
	tag, err := r.ntag("write")
	if err != nil {
		return err
	}

	if size := tag.UserSize(); len(message) > size {
		err := fmt.Errorf("%d bytes into %d: %w", len(message), size, tagserial.ErrCapacityExceeded)
		return tagserial.NewTagError("write", tag.UIDString(), err)
	}
	if err := tag.SetUserMemory(message); err != nil {
		return tagserial.NewTagError("write", tag.UIDString(), err)
	}
	return nil
}

func (r *Reader) ntag(op string) (*Tag, error) {
	tag := r.Current()
	if tag == nil {
		return nil, tagserial.NewTagError(op, "", tagserial.ErrNoTag)
	}
	if !tag.IsNTAG() {
		return nil, tagserial.NewTagError(op, tag.UIDString(),
			fmt.Errorf("%s: %w", tag.Type, tagserial.ErrUnsupportedTag))
	}
	return tag, nil
}

var _ tagserial.TagTransport = (*Reader)(nil)
