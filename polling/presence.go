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

package polling

import (
	"time"

	"github.com/rs/zerolog"
)

// Presence tracks whether a tag was in the field at the last presence
// check. The driver only checks while an operation is pending, so it
// reflects the last time anyone asked.
type Presence struct {
	LastSeenTime time.Time
	ArrivedTime  time.Time
	Present      bool
}

// Observe records a presence check and logs arrival and removal
func (p *Presence) Observe(present bool, logger zerolog.Logger) {
	now := time.Now()
	switch {
	case present && !p.Present:
		p.ArrivedTime = now
		logger.Debug().Msg("tag arrived")
	case !present && p.Present:
		logger.Debug().Dur("held", now.Sub(p.ArrivedTime)).Msg("tag removed")
		p.ArrivedTime = time.Time{}
	}
	if present {
		p.LastSeenTime = now
	}
	p.Present = present
}

// Presence returns the tag presence seen at the last check
func (d *Driver) Presence() Presence {
	return d.presence
}
