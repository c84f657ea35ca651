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

package tagserial

import (
	"errors"
	"fmt"
)

// SupportedTagFamily names the only tag family the readers can read and write.
const SupportedTagFamily = "NTAG21x"

// Tag errors
var (
	// ErrNoTag means no tag is in the field. The protocol treats it as
	// "nothing to do this tick", never as a failure.
	ErrNoTag = errors.New("no tag present")

	// ErrUnsupportedTag is returned when the tag type check does not match
	// SupportedTagFamily.
	ErrUnsupportedTag = errors.New("tag not of type " + SupportedTagFamily)

	// ErrMalformedNDEF is returned when the tag holds no decodable NDEF text record.
	ErrMalformedNDEF = errors.New("malformed NDEF message")

	// ErrCapacityExceeded is returned by a transport when the encoded message
	// does not fit in the tag's user memory.
	ErrCapacityExceeded = errors.New("tag capacity exceeded")

	// ErrPayloadTooLarge is returned when a payload does not fit the session buffer.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// TagError wraps an error returned by a tag operation with the operation name
// and, when known, the UID of the tag involved.
type TagError struct {
	Err error
	Op  string
	UID string
}

// Error implements the error interface
func (e *TagError) Error() string {
	if e.UID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.UID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TagError) Unwrap() error {
	return e.Err
}

// NewTagError creates a TagError for the given operation
func NewTagError(op, uid string, err error) *TagError {
	return &TagError{Op: op, UID: uid, Err: err}
}

// IsNoTag reports whether err only means that no tag was in the field.
func IsNoTag(err error) bool {
	return errors.Is(err, ErrNoTag)
}

// ProtocolMessage returns the text printed after "error: " on the console for
// a failed tag operation. Known conditions map to fixed messages so the host
// side can match on them.
func ProtocolMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedTag):
		return ErrUnsupportedTag.Error()
	case errors.Is(err, ErrCapacityExceeded), errors.Is(err, ErrPayloadTooLarge):
		return ErrPayloadTooLarge.Error()
	case errors.Is(err, ErrMalformedNDEF):
		return ErrMalformedNDEF.Error()
	default:
		return err.Error()
	}
}
