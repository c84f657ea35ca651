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

// Package detection lists the devices a reader or console can be opened on.
package detection

import (
	"errors"
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

// Port transports
const (
	TransportSerial = "serial"
	TransportI2C    = "i2c"
)

var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("platform not supported")
)

// Port is a candidate device path
type Port struct {
	Path      string
	Transport string
	// VIDPID is "VVVV:PPPP" for USB serial adapters, empty otherwise
	VIDPID  string
	Product string
	Serial  string
}

func (p Port) String() string {
	s := fmt.Sprintf("%-6s %s", p.Transport, p.Path)
	if p.VIDPID != "" {
		s += " [" + p.VIDPID + "]"
	}
	if p.Product != "" {
		s += " " + p.Product
	}
	return s
}

// Options filters the listed ports
type Options struct {
	// Blocklist holds VID:PID pairs that are never listed
	Blocklist []string
	// IgnorePaths holds device paths that are never listed, typically the
	// console the bridge itself talks on
	IgnorePaths []string
}

// DefaultOptions returns options with the default blocklist
func DefaultOptions() Options {
	return Options{Blocklist: DefaultBlocklist()}
}

// List returns serial ports followed by I2C buses. Platforms without I2C
// support only list serial ports.
func List(opts Options) ([]Port, error) {
	ports, err := ListSerial(opts)
	if err != nil && !errors.Is(err, ErrNoDevicesFound) {
		return nil, err
	}

	buses, err := ListI2C(opts)
	if err != nil && !errors.Is(err, ErrUnsupportedPlatform) && !errors.Is(err, ErrNoDevicesFound) {
		return nil, err
	}
	ports = append(ports, buses...)

	if len(ports) == 0 {
		return nil, ErrNoDevicesFound
	}
	return ports, nil
}

// ListSerial enumerates serial ports through the OS port enumerator.
func ListSerial(opts Options) ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]Port, 0, len(details))
	for _, d := range details {
		p := Port{Path: d.Name, Transport: TransportSerial}
		if d.IsUSB {
			p.VIDPID = FormatVIDPID(d.VID, d.PID)
			p.Product = d.Product
			p.Serial = d.SerialNumber
		}
		ports = append(ports, p)
	}

	ports = Filter(ports, opts)
	if len(ports) == 0 {
		return nil, ErrNoDevicesFound
	}
	return ports, nil
}

// Filter drops blocked and ignored ports and sorts the rest by path.
func Filter(ports []Port, opts Options) []Port {
	out := make([]Port, 0, len(ports))
	for _, p := range ports {
		if p.VIDPID != "" && IsBlocked(p.VIDPID, opts.Blocklist) {
			continue
		}
		if IsPathIgnored(p.Path, opts.IgnorePaths) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
