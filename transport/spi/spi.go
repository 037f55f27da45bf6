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

// Package spi provides the SPI port for the PN532.
//
// The PN532 shifts bytes LSB first while most SPI controllers are MSB
// first, so every byte is bit-reversed on the way in and out. Each
// transaction starts with a control byte: status read, data write or data
// read.
package spi

import (
	"context"
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// SPI protocol constants
	spiStatRead  = 0x02
	spiDataWrite = 0x01
	spiDataRead  = 0x03
	spiReady     = 0x01

	// Default SPI settings
	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0 // CPOL=0, CPHA=0 (LSB first is handled by bit reversal)
	bitsPerWord = 8
)

// Port implements pn532.Port over SPI.
type Port struct {
	port     spi.PortCloser // nil when built with NewWithConn
	conn     spi.Conn
	clock    pn532.Clock
	portName string
	mu       syncutil.Mutex
	closed   bool
}

// New opens portName, connects at 1 MHz in mode 0 and wakes the chip.
func New(portName string) (*Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	sp, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	conn, err := sp.Connect(defaultFreq, mode, bitsPerWord)
	if err != nil {
		_ = sp.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	p := NewWithConn(conn, portName, pn532.SystemClock())
	p.port = sp
	p.wakeup()
	return p, nil
}

// NewWithConn builds a port on an already connected device. Close does not
// release conn.
func NewWithConn(conn spi.Conn, name string, clock pn532.Clock) *Port {
	if clock == nil {
		clock = pn532.SystemClock()
	}
	return &Port{conn: conn, portName: name, clock: clock}
}

// wakeup clocks a dummy byte so the chip leaves power down.
func (p *Port) wakeup() {
	ctx := context.Background()
	_ = p.clock.Sleep(ctx, pn532.TransportReadyInitialDelay)
	_ = p.conn.Tx([]byte{0x00}, nil)
	_ = p.clock.Sleep(ctx, pn532.TransportReadyInitialDelay)
}

// reverseBit reverses the bits in a byte (LSB <-> MSB)
func reverseBit(b byte) byte {
	var result byte
	for range 8 {
		result <<= 1
		result |= b & 1
		b >>= 1
	}
	return result
}

func reverseBytes(dst, src []byte) {
	for i, b := range src {
		dst[i] = reverseBit(b)
	}
}

// Write sends data behind a data-write control byte.
func (p *Port) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return pn532.NewTransportError("write", p.portName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}

	w := make([]byte, len(data)+1)
	w[0] = reverseBit(spiDataWrite)
	reverseBytes(w[1:], data)
	if err := p.conn.Tx(w, nil); err != nil {
		return pn532.NewTransportError("write", p.portName, err, pn532.ErrorTypeTransient)
	}
	return nil
}

// IsReady performs a status read.
func (p *Port) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	return p.statusReady()
}

func (p *Port) statusReady() bool {
	w := []byte{reverseBit(spiStatRead), 0x00}
	r := make([]byte, len(w))
	if err := p.conn.Tx(w, r); err != nil {
		return false
	}
	return reverseBit(r[1]) == spiReady
}

// Read waits for the status register and then clocks out n bytes behind a
// data-read control byte. Consecutive reads continue through the chip's
// output buffer.
func (p *Port) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, pn532.NewTransportError("read", p.portName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}
	if err := p.waitReady(); err != nil {
		return nil, err
	}

	w := make([]byte, n+1)
	w[0] = reverseBit(spiDataRead)
	r := make([]byte, n+1)
	if err := p.conn.Tx(w, r); err != nil {
		return nil, pn532.NewTransportError("read", p.portName, err, pn532.ErrorTypeTransient)
	}

	out := make([]byte, n)
	reverseBytes(out, r[1:])
	return out, nil
}

// waitReady polls the status register with a growing delay until the chip
// is ready or pn532.TransportReadyTimeout passes.
func (p *Port) waitReady() error {
	deadline := p.clock.Now().Add(pn532.TransportReadyTimeout)
	delay := pn532.TransportReadyInitialDelay

	for {
		if p.statusReady() {
			return nil
		}
		if !p.clock.Now().Before(deadline) {
			return pn532.NewTransportError("wait ready", p.portName, pn532.ErrTimeout, pn532.ErrorTypeTimeout)
		}
		_ = p.clock.Sleep(context.Background(), delay)
		delay = min(delay*2, pn532.TransportReadyMaxDelay)
	}
}

// Close releases the SPI port. It is safe to call more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.port != nil {
		if err := p.port.Close(); err != nil {
			return fmt.Errorf("SPI close failed: %w", err)
		}
	}
	return nil
}

// Type returns the transport type
func (*Port) Type() pn532.TransportType {
	return pn532.TransportSPI
}

func (p *Port) String() string {
	return p.portName
}

var _ pn532.Port = (*Port)(nil)
