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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-tagserial/config"
	"github.com/ZaparooProject/go-tagserial/reader/virtual"
)

func TestResolveConfig_FlagsOverride(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tagserial.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[console]
device = "/dev/ttyACM0"
baud = 9600

[protocol]
poll_interval = "100ms"
`), 0o600))

	f, err := parseFlags([]string{"-config", path, "-baud", "57600", "-tag-type", "NTAG215"})
	require.NoError(t, err)
	cfg, err := resolveConfig(f)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Console.Device, "file value kept")
	assert.Equal(t, 57600, cfg.Console.Baud, "flag wins over file")
	assert.Equal(t, 100*time.Millisecond, cfg.Protocol.PollInterval, "unset flag does not reset file value")
	assert.Equal(t, "NTAG215", cfg.Reader.TagType)
}

func TestResolveConfig_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
	}{
		{name: "pn532 without device", args: []string{"-reader", "pn532_uart"}},
		{name: "capacity", args: []string{"-capacity", "1200"}},
		{name: "unknown reader", args: []string{"-reader", "acr122"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := parseFlags(tt.args)
			require.NoError(t, err)
			_, err = resolveConfig(f)
			require.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	t.Parallel()
	_, err := parseFlags([]string{"-nope"})
	require.Error(t, err)
}

func TestOpenReader_Virtual(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Reader.TagType = virtual.TypeNTAG216

	reader, closeReader, err := openReader(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeReader()

	require.IsType(t, &virtual.Reader{}, reader)
	assert.True(t, reader.TagPresent(context.Background()))
	assert.Equal(t, virtual.TypeNTAG216, reader.(*virtual.Reader).Current().Type)
}
