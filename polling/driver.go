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

// Package polling drives the serial protocol. Each tick it services a pending
// read or write against the tag reader and then feeds the console input
// through the protocol session.
package polling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	tagserial "github.com/ZaparooProject/go-tagserial"
	"github.com/ZaparooProject/go-tagserial/console"
	"github.com/ZaparooProject/go-tagserial/protocol"
)

// DefaultPollInterval is the time between two ticks of Run
const DefaultPollInterval = 50 * time.Millisecond

// Codec converts between payload text and the NDEF message bytes stored on a tag
type Codec interface {
	// Encode returns the TLV wrapped NDEF message for text
	Encode(text []byte) ([]byte, error)
	// DecodeText returns the text of the first record of an NDEF message
	DecodeText(message []byte) ([]byte, error)
}

// Driver owns the session and runs its tag operations.
//
// Thread Safety: Tick and Run must be called from a single goroutine.
// Metrics may be read concurrently.
type Driver struct {
	session   *protocol.Session
	transport tagserial.TagTransport
	console   console.Console
	codec     Codec
	logger    zerolog.Logger
	presence  Presence
	metrics   metrics
	interval  time.Duration
	inputDone bool
}

// NewDriver creates a driver for session reading from and writing to con and
// performing tag operations on transport.
func NewDriver(
	session *protocol.Session,
	transport tagserial.TagTransport,
	con console.Console,
	opts ...Option,
) *Driver {
	d := &Driver{
		session:   session,
		transport: transport,
		console:   con,
		codec:     defaultCodec(),
		logger:    zerolog.Nop(),
		interval:  DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Session returns the protocol session
func (d *Driver) Session() *protocol.Session {
	return d.session
}

// Run emits the startup line and ticks every poll interval until ctx is done.
// It returns the context error.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.emit(protocol.LogEffect(protocol.MsgInit)); err != nil {
		d.logger.Warn().Err(err).Msg("failed to write startup line")
	}
	d.logger.Info().Dur("interval", d.interval).Msg("poll loop started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m := d.Metrics()
			d.logger.Info().
				Int64("ticks", m.Ticks).
				Int64("bytes", m.BytesProcessed).
				Int64("reads", m.Reads).
				Int64("writes", m.Writes).
				Int64("errors", m.Errors).
				Msg("poll loop stopped")
			return fmt.Errorf("poll loop: %w", ctx.Err())
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.logger.Warn().Err(err).Msg("tick failed")
			}
		}
	}
}

// Tick runs one poll iteration: the pending read, then the pending write,
// then all console input available right now. A write made ready by this
// tick's input is attempted on the next tick at the earliest.
func (d *Driver) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() {
		d.metrics.ticks.Add(1)
		d.metrics.lastTickLatency.Store(int64(time.Since(start)))
	}()

	payload, writePending := d.session.PendingWrite()
	if d.session.ReadPending() || writePending {
		present := d.transport.TagPresent(ctx)
		d.presence.Observe(present, d.logger)
		if present {
			if err := d.serviceTag(ctx, payload, writePending); err != nil {
				return err
			}
		}
	}

	return d.drainInput()
}

func (d *Driver) serviceTag(ctx context.Context, payload []byte, writePending bool) error {
	if d.session.ReadPending() {
		if err := d.emit(d.readTag(ctx)...); err != nil {
			return err
		}
	}
	if writePending {
		if err := d.emit(d.writeTag(ctx, payload)...); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) readTag(ctx context.Context) []protocol.Effect {
	tag, err := d.transport.Read(ctx)
	if tagserial.IsNoTag(err) {
		d.logger.Debug().Msg("tag left before read")
		return nil
	}
	if err != nil {
		d.logger.Error().Err(err).Msg("tag read failed")
		return d.session.FailRead(err)
	}

	text, err := d.codec.DecodeText(tag.NDEF)
	if err != nil {
		d.logger.Error().Err(err).Str("uid", tag.UIDString()).Msg("failed to decode tag")
		return d.session.FailRead(err)
	}

	d.metrics.reads.Add(1)
	d.logger.Debug().Str("uid", tag.UIDString()).Str("type", tag.Type).Int("length", len(text)).Msg("tag read")
	return d.session.CompleteRead(text)
}

func (d *Driver) writeTag(ctx context.Context, payload []byte) []protocol.Effect {
	message, err := d.codec.Encode(payload)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to encode payload")
		return d.session.FailWrite(err)
	}

	err = d.transport.Write(ctx, message)
	if tagserial.IsNoTag(err) {
		d.logger.Debug().Msg("tag left before write")
		return nil
	}
	if err != nil {
		d.logger.Error().Err(err).Msg("tag write failed")
		return d.session.FailWrite(err)
	}

	d.metrics.writes.Add(1)
	d.logger.Debug().Int("length", len(payload)).Int("message", len(message)).Msg("tag written")
	return d.session.CompleteWrite()
}

// drainInput feeds every available console byte to the session in order
func (d *Driver) drainInput() error {
	if d.inputDone {
		return nil
	}

	data, readErr := d.console.ReadAvailable()
	for _, b := range data {
		d.metrics.bytes.Add(1)
		if err := d.emit(d.session.HandleByte(b)...); err != nil {
			return err
		}
	}

	switch {
	case readErr == nil:
		return nil
	case errors.Is(readErr, io.EOF):
		d.inputDone = true
		d.logger.Info().Msg("console input closed")
		d.dropIncompleteCommand()
		return nil
	default:
		d.metrics.errors.Add(1)
		return readErr
	}
}

// dropIncompleteCommand resets a command that still needs console bytes.
// A complete write or an armed read only waits for a tag and is kept.
func (d *Driver) dropIncompleteCommand() {
	mode := d.session.Mode()
	if mode != protocol.ModeAwaitingLength && mode != protocol.ModeAccumulating {
		return
	}
	d.logger.Warn().Stringer("mode", mode).Int("payload", len(d.session.Payload())).
		Msg("dropping incomplete command")
	d.session.Reset()
}

// emit writes one console line per effect
func (d *Driver) emit(effects ...protocol.Effect) error {
	for _, e := range effects {
		if e.Kind == protocol.EffectNone {
			continue
		}
		if e.Kind == protocol.EffectError {
			d.metrics.errors.Add(1)
		}
		line := e.Line()
		d.logger.Debug().Stringer("kind", e.Kind).Str("line", line).Msg("emit")
		if err := d.console.WriteLine(line); err != nil {
			return fmt.Errorf("failed to emit %s: %w", e.Kind, err)
		}
	}
	return nil
}
