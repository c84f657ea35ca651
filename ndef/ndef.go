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

// Package ndef encodes and decodes NDEF text records and the Type 2 Tag TLV
// framing around them.
package ndef

import (
	"fmt"

	gondef "github.com/hsanjuan/go-ndef"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

const (
	// LanguageCodeLength is the fixed language code size skipped when
	// extracting text from a record payload.
	LanguageCodeLength = 2

	// DefaultLanguage is the language code written with every text record.
	DefaultLanguage = "en"

	textRecordType  = "T"
	minRecordLength = 3
)

// Record is a decoded NDEF record as seen by the protocol layer
type Record struct {
	// Payload is the raw record payload (status byte, language code, text)
	Payload []byte
	// PayloadLength is the full payload length
	PayloadLength int
	// TypeLength is the length of the record type field
	TypeLength int
}

// Text returns the text content of the record, the payload subrange
// [TypeLength+LanguageCodeLength, PayloadLength).
func (r Record) Text() ([]byte, error) {
	start := r.TypeLength + LanguageCodeLength
	if r.PayloadLength > len(r.Payload) || start > r.PayloadLength {
		return nil, fmt.Errorf("text offset %d outside payload of %d bytes: %w",
			start, r.PayloadLength, tagserial.ErrMalformedNDEF)
	}
	text := make([]byte, r.PayloadLength-start)
	copy(text, r.Payload[start:r.PayloadLength])
	return text, nil
}

// Codec converts between text and NDEF text records
type Codec struct {
	// Language is the language code stored in encoded records
	Language string
}

// NewCodec returns a codec writing DefaultLanguage records
func NewCodec() *Codec {
	return &Codec{Language: DefaultLanguage}
}

// Encode builds a single text record message for text and wraps it in an
// NDEF TLV followed by the terminator TLV, ready to be written from the first
// user page of a tag.
func (c *Codec) Encode(text []byte) ([]byte, error) {
	lang := c.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	msg := gondef.NewTextMessage(string(text), lang)
	payload, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal text record: %w", err)
	}

	return WrapTLV(payload)
}

// Decode parses an NDEF message (TLV framing already removed) and returns its
// first record, which must be a well-known text record.
func (*Codec) Decode(message []byte) (Record, error) {
	// header, type length and a short payload length at minimum
	if len(message) < minRecordLength {
		return Record{}, fmt.Errorf("message of %d bytes: %w", len(message), tagserial.ErrMalformedNDEF)
	}

	msg := &gondef.Message{}
	if _, err := msg.Unmarshal(message); err != nil {
		return Record{}, fmt.Errorf("%w: %w", tagserial.ErrMalformedNDEF, err)
	}
	if len(msg.Records) == 0 {
		return Record{}, fmt.Errorf("message has no records: %w", tagserial.ErrMalformedNDEF)
	}

	rec := msg.Records[0]
	if rec.Type() != textRecordType {
		return Record{}, fmt.Errorf("record type %q is not text: %w", rec.Type(), tagserial.ErrMalformedNDEF)
	}

	payload, err := rec.Payload()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", tagserial.ErrMalformedNDEF, err)
	}
	raw := payload.Marshal()

	return Record{
		Payload:       raw,
		PayloadLength: len(raw),
		TypeLength:    len(rec.Type()),
	}, nil
}

// DecodeText is a shortcut for Decode followed by Record.Text
func (c *Codec) DecodeText(message []byte) ([]byte, error) {
	rec, err := c.Decode(message)
	if err != nil {
		return nil, err
	}
	return rec.Text()
}
