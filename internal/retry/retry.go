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

// Package retry holds the retry loops shared by the reader transports
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry errors
var (
	ErrExhausted = errors.New("retries exhausted")
	ErrTimeout   = errors.New("timed out")
)

// Operation is a function that can be retried.
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry     func() error
	Description string
	MaxRetries  int
	Delay       time.Duration
}

// Do runs operation until it succeeds, fails permanently, runs out of
// retries or ctx ends.
func Do[T any](ctx context.Context, config Config, operation Operation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", config.Description, err)
		}

		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}
		if config.Delay > 0 {
			time.Sleep(config.Delay)
		}
	}

	return zero, fmt.Errorf("%s: %w after %d attempts", config.Description, ErrExhausted, config.MaxRetries+1)
}

// Until polls operation every interval until it stops asking for a retry or
// timeout elapses. Common pattern for waiting on a device status.
func Until[T any](ctx context.Context, timeout, interval time.Duration, operation Operation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return zero, ErrTimeout
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("wait cancelled: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}
