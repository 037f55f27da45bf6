// go-pn532
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-pn532.
//
// go-pn532 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-pn532 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-pn532; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package pn532

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
)

// RFState is what the driver last commanded the RF field to be.
type RFState int

const (
	RFUnknown RFState = iota
	RFOn
	RFOff
)

// Device represents a PN532 reader behind a Port.
//
// Commands are serialized by the underlying Session, so a Device may be
// shared between a poller and a health monitor.
type Device struct {
	port          Port
	clock         Clock
	session       *Session
	firmware      *FirmwareVersion
	firmwareRetry *RetryConfig
	readyTimeout  time.Duration
	traceSize     int
	rf            RFState
	mu            syncutil.RWMutex

	idleRFOff      bool
	rfReactivation bool
}

// New creates a Device on port. The chip is not touched until Initialize.
func New(port Port, opts ...Option) (*Device, error) {
	if port == nil {
		return nil, fmt.Errorf("%w: nil port", ErrInvalidParameter)
	}

	device := &Device{
		port:          port,
		clock:         SystemClock(),
		firmwareRetry: FirmwareRetryConfig(),
		readyTimeout:  DefaultReadyTimeout,
		traceSize:     DefaultTraceSize,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	device.session = NewSession(port, SessionConfig{
		Clock:        device.clock,
		ReadyTimeout: device.readyTimeout,
		TraceSize:    device.traceSize,
	})
	return device, nil
}

// Session returns the command session used by the device.
func (d *Device) Session() *Session {
	return d.session
}

// Port returns the underlying port.
func (d *Device) Port() Port {
	return d.port
}

// Clock returns the time source the device was configured with.
func (d *Device) Clock() Clock {
	return d.clock
}

// Close closes the underlying port if it can be closed.
func (d *Device) Close() error {
	return ClosePort(d.port)
}

// Initialize brings the chip into a known state: a firmware version query,
// retried with a fixed delay, then SAM configuration in normal mode (sent
// once), then the idle RF policy. A failure of the last step is only logged.
// Initialize is also used to recover a chip that stopped responding.
func (d *Device) Initialize(ctx context.Context) error {
	retry := *d.firmwareRetry
	retry.Clock = d.clock

	attempts, err := RetryWithConfig(ctx, &retry, func() error {
		_, err := d.FirmwareVersion(ctx)
		if err != nil {
			Debugf("initialize: firmware query failed: %v", err)
		}
		return err
	})
	if err != nil {
		return &InitError{Stage: StageFirmware, Attempts: attempts, Err: err}
	}

	if err := d.SAMConfiguration(ctx, SAMModeNormal); err != nil {
		return &InitError{Stage: StageSAM, Attempts: 1, Err: err}
	}

	if err := d.ApplyIdleRFPolicy(ctx); err != nil {
		Debugf("initialize: switching RF field off failed: %v", err)
	}

	if fw := d.Firmware(); fw != nil {
		Debugf("initialized %s (support 0x%02X)", fw, fw.Support)
	}
	return nil
}

// FirmwareVersion queries the chip's firmware version. It doubles as the
// liveness probe used by health checks.
func (d *Device) FirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	payload, err := d.session.Execute(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, fmt.Errorf("get firmware version: %w", err)
	}

	fw, err := ParseFirmwareVersion(payload)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.firmware = fw
	d.mu.Unlock()

	out := *fw
	return &out, nil
}

// Firmware returns the firmware version from the last successful query, or
// nil.
func (d *Device) Firmware() *FirmwareVersion {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.firmware == nil {
		return nil
	}
	out := *d.firmware
	return &out
}

// SAMConfiguration sets the SAM mode with a 1 s virtual card timeout and
// the IRQ line enabled.
func (d *Device) SAMConfiguration(ctx context.Context, mode SAMMode) error {
	_, err := d.session.Execute(ctx, cmdSamConfiguration, []byte{byte(mode), samDefaultTimeout, samUseIRQ})
	if err != nil {
		return fmt.Errorf("SAM configuration: %w", err)
	}
	return nil
}

// SetRFField switches the antenna's RF field on or off.
func (d *Device) SetRFField(ctx context.Context, on bool) error {
	value := rfFieldOff
	if on {
		value = rfFieldOn
	}

	if _, err := d.session.Execute(ctx, cmdRFConfiguration, []byte{rfItemField, value}); err != nil {
		return fmt.Errorf("RF configuration: %w", err)
	}

	d.setRF(on)
	return nil
}

// RFState returns what the RF field was last set to.
func (d *Device) RFState() RFState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rf
}

func (d *Device) setRF(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.rf = RFOn
	} else {
		d.rf = RFOff
	}
}

// ApplyIdleRFPolicy switches the RF field off when the device was created
// with WithIdleRFOff, and does nothing otherwise.
func (d *Device) ApplyIdleRFPolicy(ctx context.Context) error {
	if !d.idleRFOff {
		return nil
	}
	return d.SetRFField(ctx, false)
}

// ListPassiveTarget runs one inventory for a single 106 kbps type A target
// and returns the raw response payload (see ParsePassiveTarget). With
// WithRFReactivation, a field known to be off is switched on first.
func (d *Device) ListPassiveTarget(ctx context.Context) ([]byte, error) {
	if d.rfReactivation && d.RFState() == RFOff {
		if err := d.SetRFField(ctx, true); err != nil {
			return nil, err
		}
	}

	payload, err := d.session.Execute(ctx, cmdInListPassiveTarget, []byte{passiveMaxTargets, passiveBaudTypeA})
	if err != nil {
		return nil, fmt.Errorf("list passive target: %w", err)
	}

	// The chip switches the field on to poll
	d.setRF(true)
	return payload, nil
}

// DetectTarget runs one inventory and parses it. It returns (nil, nil) when
// no card answered.
func (d *Device) DetectTarget(ctx context.Context) (*PassiveTarget, error) {
	payload, err := d.ListPassiveTarget(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePassiveTarget(payload)
}
