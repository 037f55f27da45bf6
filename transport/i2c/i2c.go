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

// Package i2c provides the I2C port for the PN532.
//
// Every I2C read transaction starts with a status byte (0x01 when the chip
// has data) and restarts from the beginning of the chip's output buffer.
// A response frame therefore has to be clocked out in one transaction; the
// port keeps the bytes past the header and hands them to the next Read.
package i2c

import (
	"context"
	"fmt"
	"strings"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/frame"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// PN532 7-bit I2C address (datasheet says 0x48, which is the 8-bit write
	// address including the R/W bit; periph.io and the Linux kernel expect the
	// 7-bit form: 0x48 >> 1 = 0x24).
	pn532Addr = 0x24

	pn532Ready = 0x01

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// maxFrameLen is the longest normal information frame the chip sends.
	maxFrameLen = frame.HeaderLength + frame.MaxPayload + 2
)

// Conn is the bus device the port talks through. *i2c.Dev implements it.
type Conn interface {
	Tx(w, r []byte) error
}

// Port implements pn532.Port over I2C.
type Port struct {
	dev     Conn
	bus     i2c.BusCloser // nil when built with NewWithConn
	clock   pn532.Clock
	busName string
	pending []byte
	mu      syncutil.Mutex
	closed  bool
}

// parseI2CPath extracts the bus path from a composite path.
// Accepts "/dev/i2c-1:0x24" or "/dev/i2c-1" (bare bus).
func parseI2CPath(path string) string {
	bus, _, _ := strings.Cut(path, ":")
	return bus
}

// New opens busName and returns a port addressing the PN532 on it.
func New(busName string) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(parseI2CPath(busName))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	p := NewWithConn(&i2c.Dev{Addr: pn532Addr, Bus: bus}, busName, pn532.SystemClock())
	p.bus = bus
	return p, nil
}

// NewWithConn builds a port on an already opened device. Close does not
// release dev.
func NewWithConn(dev Conn, name string, clock pn532.Clock) *Port {
	if clock == nil {
		clock = pn532.SystemClock()
	}
	return &Port{dev: dev, busName: name, clock: clock}
}

// Write sends data in a single write transaction.
func (p *Port) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return pn532.NewTransportError("write", p.busName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}
	p.pending = nil
	if err := p.dev.Tx(data, nil); err != nil {
		return pn532.NewTransportError("write", p.busName, err, pn532.ErrorTypeTransient)
	}
	return nil
}

// IsReady reads the status byte.
func (p *Port) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if len(p.pending) > 0 {
		return true
	}
	return p.statusReady()
}

func (p *Port) statusReady() bool {
	status := make([]byte, 1)
	if err := p.dev.Tx(nil, status); err != nil {
		return false
	}
	return status[0] == pn532Ready
}

// Read returns n bytes. Bytes left over from an earlier frame read are
// served first. Otherwise it waits for the status byte and clocks out
// either n bytes or, for a frame header, the longest possible frame.
func (p *Port) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, pn532.NewTransportError("read", p.busName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}
	if len(p.pending) > 0 {
		return p.takePending(n), nil
	}
	if err := p.waitReady(); err != nil {
		return nil, err
	}

	size := n
	if n >= frame.HeaderLength {
		size = max(n, maxFrameLen)
	}
	buf := make([]byte, size+1)
	if err := p.dev.Tx(nil, buf); err != nil {
		return nil, pn532.NewTransportError("read", p.busName, err, pn532.ErrorTypeTransient)
	}
	if buf[0] != pn532Ready {
		return nil, pn532.NewTransportError("read", p.busName, pn532.ErrTimeout, pn532.ErrorTypeTimeout)
	}

	data := buf[1:]
	if size > n {
		p.pending = data[n:]
	}
	return data[:n], nil
}

// takePending returns n bytes from pending, padding with zeros as an idle
// bus would.
func (p *Port) takePending(n int) []byte {
	out := make([]byte, n)
	m := copy(out, p.pending)
	p.pending = p.pending[m:]
	return out
}

// waitReady polls the status byte with a growing delay until the chip is
// ready or pn532.TransportReadyTimeout passes.
func (p *Port) waitReady() error {
	deadline := p.clock.Now().Add(pn532.TransportReadyTimeout)
	delay := pn532.TransportReadyInitialDelay

	for {
		if p.statusReady() {
			return nil
		}
		if !p.clock.Now().Before(deadline) {
			return pn532.NewTransportError("wait ready", p.busName, pn532.ErrTimeout, pn532.ErrorTypeTimeout)
		}
		_ = p.clock.Sleep(context.Background(), delay)
		delay = min(delay*2, pn532.TransportReadyMaxDelay)
	}
}

// Close releases the bus. It is safe to call more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.pending = nil
	if p.bus != nil {
		if err := p.bus.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus: %w", err)
		}
	}
	return nil
}

// Type returns the transport type.
func (*Port) Type() pn532.TransportType {
	return pn532.TransportI2C
}

func (p *Port) String() string {
	return p.busName
}

var _ pn532.Port = (*Port)(nil)
