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

package detection

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// i2cDevGlob matches the i2c-dev character devices
const i2cDevGlob = "/dev/i2c-*"

// ListI2C returns the I2C buses exposed through i2c-dev, ordered by bus number.
func ListI2C(opts Options) ([]Port, error) {
	return listI2C(i2cDevGlob, opts)
}

func listI2C(pattern string, opts Options) ([]Port, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("find i2c buses: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return busNumber(matches[i]) < busNumber(matches[j])
	})

	ports := make([]Port, 0, len(matches))
	for _, m := range matches {
		if IsPathIgnored(m, opts.IgnorePaths) {
			continue
		}
		ports = append(ports, Port{Path: m, Transport: TransportI2C})
	}
	if len(ports) == 0 {
		return nil, ErrNoDevicesFound
	}
	return ports, nil
}

func busNumber(path string) int {
	_, num, _ := strings.Cut(filepath.Base(path), "i2c-")
	n, err := strconv.Atoi(num)
	if err != nil {
		return -1
	}
	return n
}
