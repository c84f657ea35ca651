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

	"github.com/rs/zerolog"

	tagserial "github.com/ZaparooProject/go-tagserial"
)

// PN532 commands
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

const (
	pn532IC = 0x32

	// InDataExchange status codes
	statusTimeout = 0x01
	statusMask    = 0x3F

	// RFConfiguration item for the retry counts
	rfItemMaxRetries = 0x05
	// passive activation attempts per InListPassiveTarget; 0xFF would wait forever
	passiveActivationRetries = 0x02

	targetNumber = 0x01
	brTypeA      = 0x00
)

// ErrExchangeStatus is returned when the PN532 reports a failed exchange with a tag
var ErrExchangeStatus = errors.New("tag exchange failed")

// FirmwareVersion describes the PN532 firmware
type FirmwareVersion struct {
	Version          string
	SupportIso14443a bool
	SupportIso14443b bool
	SupportIso18092  bool
}

// Target is a tag found by InListPassiveTarget
type Target struct {
	UID  []byte
	ATQA [2]byte
	SAK  byte
}

// ntagSensRes is the ATQA of NTAG21x, with SAK 0x00
var ntagSensRes = [2]byte{0x00, 0x44}

// IsNTAG reports whether the target answers like an NTAG21x
func (t *Target) IsNTAG() bool {
	return t.ATQA == ntagSensRes && t.SAK == 0x00
}

// TypeName returns a short tag family name
func (t *Target) TypeName() string {
	switch {
	case t.IsNTAG():
		return tagserial.SupportedTagFamily
	case t.SAK == 0x08:
		return "MIFARE1K"
	case t.SAK == 0x18:
		return "MIFARE4K"
	default:
		return fmt.Sprintf("ISO14443A(SAK %#02x)", t.SAK)
	}
}

// Device issues PN532 commands over a Transport
type Device struct {
	transport Transport
	logger    zerolog.Logger
}

// NewDevice creates a device on transport
func NewDevice(transport Transport, logger zerolog.Logger) *Device {
	return &Device{transport: transport, logger: logger}
}

// Init puts the PN532 in normal mode and limits passive activation retries
// so target listing returns when no tag is in the field.
func (d *Device) Init(ctx context.Context) (FirmwareVersion, error) {
	if err := d.SAMConfiguration(ctx); err != nil {
		return FirmwareVersion{}, err
	}
	if err := d.setMaxRetries(ctx); err != nil {
		return FirmwareVersion{}, err
	}
	fv, err := d.FirmwareVersion(ctx)
	if err != nil {
		return FirmwareVersion{}, err
	}
	d.logger.Info().Str("firmware", fv.Version).Msg("PN532 ready")
	return fv, nil
}

func (d *Device) call(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	res, err := d.transport.SendCommand(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 || res[0] != cmd+1 {
		return nil, fmt.Errorf("command %#02x returned % x: %w", cmd, res, ErrUnexpectedResponse)
	}
	return res[1:], nil
}

// SAMConfiguration sets the PN532 to normal mode
func (d *Device) SAMConfiguration(ctx context.Context) error {
	d.logger.Debug().Msg("running sam configuration")
	if _, err := d.call(ctx, cmdSAMConfiguration, []byte{0x01, 0x14, 0x01}); err != nil {
		return fmt.Errorf("sam configuration: %w", err)
	}
	return nil
}

func (d *Device) setMaxRetries(ctx context.Context) error {
	args := []byte{rfItemMaxRetries, 0xFF, 0x01, passiveActivationRetries}
	if _, err := d.call(ctx, cmdRFConfiguration, args); err != nil {
		return fmt.Errorf("rf configuration: %w", err)
	}
	return nil
}

// FirmwareVersion returns the firmware version
func (d *Device) FirmwareVersion(ctx context.Context) (FirmwareVersion, error) {
	d.logger.Debug().Msg("running getfirmwareversion")
	res, err := d.call(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return FirmwareVersion{}, fmt.Errorf("firmware version: %w", err)
	}
	if len(res) != 4 {
		return FirmwareVersion{}, fmt.Errorf("firmware version % x: %w", res, ErrUnexpectedResponse)
	}
	if res[0] != pn532IC {
		return FirmwareVersion{}, fmt.Errorf("unexpected IC %#02x: %w", res[0], ErrUnexpectedResponse)
	}

	return FirmwareVersion{
		Version:          fmt.Sprintf("%d.%d", res[1], res[2]),
		SupportIso14443a: res[3]&0x01 == 0x01,
		SupportIso14443b: res[3]&0x02 == 0x02,
		SupportIso18092:  res[3]&0x04 == 0x04,
	}, nil
}

// InListPassiveTarget looks for one ISO14443A target. It returns nil and no
// error when the field is empty.
func (d *Device) InListPassiveTarget(ctx context.Context) (*Target, error) {
	res, err := d.call(ctx, cmdInListPassiveTarget, []byte{targetNumber, brTypeA})
	if err != nil {
		return nil, fmt.Errorf("list passive target: %w", err)
	}
	if len(res) < 1 {
		return nil, fmt.Errorf("list passive target: %w", ErrUnexpectedResponse)
	}
	if res[0] == 0 {
		return nil, nil
	}

	// NbTg, Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID
	if len(res) < 6 {
		return nil, fmt.Errorf("target data % x: %w", res, ErrUnexpectedResponse)
	}
	uidLen := int(res[5])
	if uidLen == 0 || len(res) < 6+uidLen {
		return nil, fmt.Errorf("invalid uid length %d: %w", uidLen, ErrUnexpectedResponse)
	}

	return &Target{
		ATQA: [2]byte{res[2], res[3]},
		SAK:  res[4],
		UID:  bytes.Clone(res[6 : 6+uidLen]),
	}, nil
}

// InDataExchange sends data to the selected target and returns its answer.
// A timeout status means the tag left the field and maps to ErrNoTag.
func (d *Device) InDataExchange(ctx context.Context, data []byte) ([]byte, error) {
	args := append([]byte{targetNumber}, data...)
	res, err := d.call(ctx, cmdInDataExchange, args)
	if err != nil {
		return nil, fmt.Errorf("data exchange: %w", err)
	}
	if len(res) < 1 {
		return nil, fmt.Errorf("data exchange: %w", ErrUnexpectedResponse)
	}

	switch status := res[0] & statusMask; status {
	case 0x00:
		return res[1:], nil
	case statusTimeout:
		return nil, fmt.Errorf("%w: %w (status %#02x)", tagserial.ErrNoTag, ErrExchangeStatus, status)
	default:
		return nil, fmt.Errorf("%w (status %#02x)", ErrExchangeStatus, status)
	}
}

// InRelease releases the selected target
func (d *Device) InRelease(ctx context.Context) error {
	if _, err := d.call(ctx, cmdInRelease, []byte{0x00}); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// Close closes the transport
func (d *Device) Close() error {
	return d.transport.Close()
}
