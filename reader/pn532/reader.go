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

package pn532

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/ndef"
)

// Reader is a TagTransport backed by a PN532.
//
// TagPresent selects the tag it finds so the following Read or Write talks
// to that tag without listing again. Each Read and Write releases it.
type Reader struct {
	device *Device
	target *Target
	logger zerolog.Logger
	// verifyRetries is the number of rewrites of a page that reads back
	// wrong; negative disables read-back
	verifyRetries int
	mu            sync.Mutex
}

// Option is a functional option for configuring a Reader
type Option func(*Reader)

// WithLogger sets the diagnostic logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger.With().Str("component", "pn532").Logger()
	}
}

// WithVerifyWrites reads every written page back and rewrites it up to
// retries times when the tag returns different data.
func WithVerifyWrites(retries int) Option {
	return func(r *Reader) {
		r.verifyRetries = max(retries, 0)
	}
}

// NewReader initializes the PN532 on transport and returns a reader
func NewReader(ctx context.Context, transport Transport, opts ...Option) (*Reader, error) {
	r := &Reader{logger: zerolog.Nop(), verifyRetries: -1}
	for _, opt := range opts {
		opt(r)
	}
	r.device = NewDevice(transport, r.logger)

	if _, err := r.device.Init(ctx); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to initialize PN532: %w", err)
	}
	return r, nil
}

// Device returns the underlying PN532
func (r *Reader) Device() *Device {
	return r.device
}

// Close closes the transport
func (r *Reader) Close() error {
	return r.device.Close()
}

// TagPresent implements tagserial.TagTransport
func (r *Reader) TagPresent(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.device.InListPassiveTarget(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("presence check failed")
		r.target = nil
		return false
	}
	r.target = target
	return target != nil
}

// Read implements tagserial.TagTransport
func (r *Reader) Read(ctx context.Context) (*tagserial.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.selectNTAG(ctx, "read")
	if err != nil {
		return nil, err
	}
	defer r.release(ctx)
	uid := fmt.Sprintf("%x", target.UID)

	size, err := r.device.userMemorySize(ctx)
	if err != nil {
		return nil, tagserial.NewTagError("read", uid, err)
	}

	message, err := r.readMessage(ctx, size)
	if err != nil {
		return nil, tagserial.NewTagError("read", uid, err)
	}

	return &tagserial.Tag{
		Type:     target.TypeName(),
		UID:      target.UID,
		NDEF:     message,
		Capacity: size,
	}, nil
}

// readMessage reads user memory four pages at a time until the NDEF TLV is
// complete or the memory ends.
func (r *Reader) readMessage(ctx context.Context, size int) ([]byte, error) {
	memory := make([]byte, 0, size)
	for page := ntagFirstUserPage; len(memory) < size; page += ntagReadSize / ntagPageSize {
		data, err := r.device.readPages(ctx, page)
		if err != nil {
			return nil, err
		}
		memory = append(memory, data[:min(len(data), size-len(memory))]...)

		message, err := ndef.UnwrapTLV(memory)
		if errors.Is(err, ndef.ErrTruncated) {
			continue
		}
		if err != nil {
			return nil, err
		}
		r.logger.Debug().Int("pages", len(memory)/ntagPageSize).Msg("found end of NDEF message")
		return message, nil
	}
	return nil, fmt.Errorf("NDEF TLV runs past %d bytes: %w", size, tagserial.ErrMalformedNDEF)
}

// Write implements tagserial.TagTransport
func (r *Reader) Write(ctx context.Context, message []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.selectNTAG(ctx, "write")
	if err != nil {
		return err
	}
	defer r.release(ctx)
	uid := fmt.Sprintf("%x", target.UID)

	size, err := r.device.userMemorySize(ctx)
	if err != nil {
		return tagserial.NewTagError("write", uid, err)
	}
	if len(message) > size {
		err := fmt.Errorf("%d bytes into %d: %w", len(message), size, tagserial.ErrCapacityExceeded)
		return tagserial.NewTagError("write", uid, err)
	}

	for off := 0; off < len(message); off += ntagPageSize {
		page := make([]byte, ntagPageSize)
		copy(page, message[off:])
		if err := r.writePage(ctx, ntagFirstUserPage+off/ntagPageSize, page); err != nil {
			return tagserial.NewTagError("write", uid, err)
		}
	}
	r.logger.Debug().Str("uid", uid).Int("bytes", len(message)).Msg("NDEF message written")
	return nil
}

func (r *Reader) writePage(ctx context.Context, page int, data []byte) error {
	if r.verifyRetries < 0 {
		return r.device.writePage(ctx, page, data)
	}
	return r.device.writePageVerified(ctx, page, data, r.verifyRetries)
}

// selectNTAG returns the target found by the last presence check, listing
// again when there is none.
func (r *Reader) selectNTAG(ctx context.Context, op string) (*Target, error) {
	target := r.target
	if target == nil {
		var err error
		target, err = r.device.InListPassiveTarget(ctx)
		if err != nil {
			return nil, tagserial.NewTagError(op, "", err)
		}
	}
	if target == nil {
		return nil, tagserial.NewTagError(op, "", tagserial.ErrNoTag)
	}
	if !target.IsNTAG() {
		r.target = nil
		err := fmt.Errorf("%s: %w", target.TypeName(), tagserial.ErrUnsupportedTag)
		return nil, tagserial.NewTagError(op, fmt.Sprintf("%x", target.UID), err)
	}
	return target, nil
}

func (r *Reader) release(ctx context.Context) {
	r.target = nil
	if err := r.device.InRelease(ctx); err != nil {
		r.logger.Debug().Err(err).Msg("release failed")
	}
}

var _ tagserial.TagTransport = (*Reader)(nil)
