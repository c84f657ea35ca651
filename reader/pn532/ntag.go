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
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/internal/retry"
)

// ErrVerifyFailed is returned when a written page keeps reading back different data
var ErrVerifyFailed = errors.New("write verification failed")

// verifySettle is the pause before reading back a written page
const verifySettle = 5 * time.Millisecond

// NTAG21x commands
const (
	ntagRead  = 0x30
	ntagWrite = 0xA2
)

const (
	ntagPageSize      = 4
	ntagReadSize      = 16
	ntagCCPage        = 3
	ntagFirstUserPage = 4
	ntagCCMagic       = 0xE1
)

// readPages reads four pages starting at page
func (d *Device) readPages(ctx context.Context, page int) ([]byte, error) {
	res, err := d.InDataExchange(ctx, []byte{ntagRead, byte(page)})
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}
	if len(res) < ntagReadSize {
		return nil, fmt.Errorf("read page %d: %d bytes: %w", page, len(res), ErrUnexpectedResponse)
	}
	return res[:ntagReadSize], nil
}

// writePage writes one page
func (d *Device) writePage(ctx context.Context, page int, data []byte) error {
	args := make([]byte, 0, 2+ntagPageSize)
	args = append(args, ntagWrite, byte(page))
	args = append(args, data...)
	if _, err := d.InDataExchange(ctx, args); err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}
	return nil
}

// writePageVerified writes one page and reads it back, writing again while
// the tag returns different data.
func (d *Device) writePageVerified(ctx context.Context, page int, data []byte, retries int) error {
	_, err := retry.Do(ctx, retry.Config{
		Description: fmt.Sprintf("write page %d", page),
		MaxRetries:  retries,
		Delay:       verifySettle,
	}, func() (struct{}, bool, error) {
		if err := d.writePage(ctx, page, data); err != nil {
			return struct{}{}, false, err
		}
		got, err := d.readPages(ctx, page)
		if err != nil {
			return struct{}{}, false, err
		}
		if !bytes.Equal(got[:ntagPageSize], data) {
			d.logger.Debug().Int("page", page).Hex("got", got[:ntagPageSize]).Msg("page read back wrong")
			return struct{}{}, true, nil
		}
		return struct{}{}, false, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w: %w", ErrVerifyFailed, err)
	}
	return err
}

// userMemorySize returns the NDEF area size from the capability container
func (d *Device) userMemorySize(ctx context.Context) (int, error) {
	cc, err := d.readPages(ctx, ntagCCPage)
	if err != nil {
		return 0, err
	}
	if cc[0] != ntagCCMagic {
		return 0, fmt.Errorf("capability container % x: %w", cc[:4], tagserial.ErrMalformedNDEF)
	}
	return int(cc[2]) * 8, nil
}
