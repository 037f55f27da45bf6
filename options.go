// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pn532

import (
	"errors"
	"fmt"
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithClock sets the time source for readiness waits and retry delays
func WithClock(clock Clock) Option {
	return func(d *Device) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidParameter)
		}
		d.clock = clock
		return nil
	}
}

// WithReadyTimeout sets how long a command may take to become ready after
// its ACK
func WithReadyTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: ready timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		d.readyTimeout = timeout
		return nil
	}
}

// WithFirmwareRetry sets the number of firmware query attempts made by
// Initialize and the fixed delay between them
func WithFirmwareRetry(attempts int, delay time.Duration) Option {
	return func(d *Device) error {
		if attempts < 1 || delay < 0 {
			return fmt.Errorf("%w: firmware retry %d attempts, %v delay", ErrInvalidParameter, attempts, delay)
		}
		d.firmwareRetry = &RetryConfig{
			MaxAttempts:    attempts,
			InitialBackoff: delay,
			MaxBackoff:     delay,
		}
		return nil
	}
}

// WithIdleRFOff switches the RF field off after initialization and after
// every completed inventory, so the antenna only radiates while scanning
func WithIdleRFOff(enabled bool) Option {
	return func(d *Device) error {
		d.idleRFOff = enabled
		return nil
	}
}

// WithRFReactivation switches the RF field back on before an inventory
// when it is known to be off
func WithRFReactivation(enabled bool) Option {
	return func(d *Device) error {
		d.rfReactivation = enabled
		return nil
	}
}

// WithTraceSize sets how many wire trace entries a failed command carries
func WithTraceSize(entries int) Option {
	return func(d *Device) error {
		if entries < 1 {
			return errors.New("trace size must be at least 1")
		}
		d.traceSize = entries
		return nil
	}
}
