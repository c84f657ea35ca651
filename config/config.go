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

// Package config loads the tagserial bridge settings from a TOML file.
//
// A file only needs the keys it changes; everything else keeps the value
// from Default. Example:
//
//	[console]
//	device = "/dev/ttyACM0"
//	baud = 115200
//
//	[reader]
//	driver = "pn532_uart"
//	device = "/dev/ttyUSB0"
//	verify_writes = false
//
//	[protocol]
//	capacity = 999
//	poll_interval = "50ms"
//
//	[log]
//	debug = true
//	file = "/var/log/tagserial.log"
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ZaparooProject/go-tagserial/console"
	"github.com/ZaparooProject/go-tagserial/polling"
	"github.com/ZaparooProject/go-tagserial/protocol"
	"github.com/ZaparooProject/go-tagserial/reader/pn532"
	"github.com/ZaparooProject/go-tagserial/reader/virtual"
)

// Reader drivers
const (
	DriverVirtual   = "virtual"
	DriverPN532UART = "pn532_uart"
	DriverPN532I2C  = "pn532_i2c"
)

// ConsoleStdin selects the process terminal instead of a serial port
const ConsoleStdin = "stdin"

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Console selects where the command protocol is spoken
type Console struct {
	Device string
	Baud   int
}

// Reader selects the tag transport
type Reader struct {
	Driver       string
	Device       string
	TagType      string
	Timeout      time.Duration
	// VerifyWrites reads back every page written to a PN532 tag
	VerifyWrites bool
}

// Protocol holds the session and poll loop settings
type Protocol struct {
	Capacity     int
	PollInterval time.Duration
}

// Log holds the diagnostic logging settings
type Log struct {
	File  string
	Debug bool
}

// Config is the complete runtime configuration
type Config struct {
	Console  Console
	Reader   Reader
	Log      Log
	Protocol Protocol
}

// Default returns a configuration that runs against a virtual NTAG213 on the
// process terminal.
func Default() Config {
	return Config{
		Console: Console{
			Device: ConsoleStdin,
			Baud:   console.DefaultBaudRate,
		},
		Reader: Reader{
			Driver:       DriverVirtual,
			TagType:      virtual.TypeNTAG213,
			Timeout:      pn532.DefaultTimeout,
			VerifyWrites: true,
		},
		Protocol: Protocol{
			Capacity:     protocol.DefaultCapacity,
			PollInterval: polling.DefaultPollInterval,
		},
	}
}

// file mirrors the TOML layout. Pointers tell unset keys from zero values.
type file struct {
	Console struct {
		Device *string `toml:"device"`
		Baud   *int    `toml:"baud"`
	} `toml:"console"`
	Reader struct {
		Driver       *string `toml:"driver"`
		Device       *string `toml:"device"`
		TagType      *string `toml:"tag_type"`
		Timeout      *string `toml:"timeout"`
		VerifyWrites *bool   `toml:"verify_writes"`
	} `toml:"reader"`
	Protocol struct {
		Capacity     *int    `toml:"capacity"`
		PollInterval *string `toml:"poll_interval"`
	} `toml:"protocol"`
	Log struct {
		Debug *bool   `toml:"debug"`
		File  *string `toml:"file"`
	} `toml:"log"`
}

// Load reads a TOML file over Default and validates the result.
func Load(path string) (Config, error) {
	var raw file
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return build(raw, meta, path)
}

// Parse is Load for an in-memory document.
func Parse(doc string) (Config, error) {
	var raw file
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return build(raw, meta, "config")
}

func build(raw file, meta toml.MetaData, name string) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, name, strings.Join(keys, ", "))
	}

	cfg := Default()
	setString(&cfg.Console.Device, raw.Console.Device)
	setInt(&cfg.Console.Baud, raw.Console.Baud)
	setString(&cfg.Reader.Driver, raw.Reader.Driver)
	setString(&cfg.Reader.Device, raw.Reader.Device)
	setString(&cfg.Reader.TagType, raw.Reader.TagType)
	setInt(&cfg.Protocol.Capacity, raw.Protocol.Capacity)
	setString(&cfg.Log.File, raw.Log.File)
	setBool(&cfg.Reader.VerifyWrites, raw.Reader.VerifyWrites)
	setBool(&cfg.Log.Debug, raw.Log.Debug)

	if err := setDuration(&cfg.Reader.Timeout, raw.Reader.Timeout, "reader.timeout"); err != nil {
		return Config{}, err
	}
	if err := setDuration(&cfg.Protocol.PollInterval, raw.Protocol.PollInterval, "protocol.poll_interval"); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

func setString(dst, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, key string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*src))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalid, key, err)
	}
	*dst = d
	return nil
}

// Validate checks the values that cannot be fixed up at runtime.
func (c Config) Validate() error {
	if c.Console.Device == "" {
		return fmt.Errorf("%w: console.device is empty", ErrInvalid)
	}
	if c.Console.Baud <= 0 {
		return fmt.Errorf("%w: console.baud must be positive, got %d", ErrInvalid, c.Console.Baud)
	}

	switch c.Reader.Driver {
	case DriverVirtual:
		if _, err := virtual.NewTag(c.Reader.TagType, nil); err != nil {
			return fmt.Errorf("%w: reader.tag_type: %w", ErrInvalid, err)
		}
	case DriverPN532UART, DriverPN532I2C:
		if c.Reader.Device == "" {
			return fmt.Errorf("%w: reader.device is required for driver %s", ErrInvalid, c.Reader.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown reader.driver %q (expected %s, %s or %s)",
			ErrInvalid, c.Reader.Driver, DriverVirtual, DriverPN532UART, DriverPN532I2C)
	}
	if c.Reader.Timeout <= 0 {
		return fmt.Errorf("%w: reader.timeout must be positive", ErrInvalid)
	}

	if c.Protocol.Capacity < 0 || c.Protocol.Capacity > protocol.MaxCapacity {
		return fmt.Errorf("%w: protocol.capacity must be within 0..%d, got %d",
			ErrInvalid, protocol.MaxCapacity, c.Protocol.Capacity)
	}
	if c.Protocol.PollInterval <= 0 {
		return fmt.Errorf("%w: protocol.poll_interval must be positive", ErrInvalid)
	}
	return nil
}

// Encode writes the configuration as a complete TOML document.
func (c Config) Encode(w io.Writer) error {
	var raw file
	raw.Console.Device = &c.Console.Device
	raw.Console.Baud = &c.Console.Baud
	raw.Reader.Driver = &c.Reader.Driver
	raw.Reader.Device = &c.Reader.Device
	raw.Reader.TagType = &c.Reader.TagType
	timeout := c.Reader.Timeout.String()
	raw.Reader.Timeout = &timeout
	raw.Reader.VerifyWrites = &c.Reader.VerifyWrites
	raw.Protocol.Capacity = &c.Protocol.Capacity
	interval := c.Protocol.PollInterval.String()
	raw.Protocol.PollInterval = &interval
	raw.Log.Debug = &c.Log.Debug
	raw.Log.File = &c.Log.File

	if err := toml.NewEncoder(w).Encode(raw); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
