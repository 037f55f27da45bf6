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

// Package uart provides the UART (HSU) port for the PN532.
//
// HSU is a plain byte stream: there is no status register, so readiness
// means bytes have arrived. Bytes read while probing for readiness are
// buffered and returned by the next Read.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/frame"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
	"go.bug.st/serial"
)

const baudRate = 115200

// wakeUpPreamble takes the chip out of power down before a command frame.
var wakeUpPreamble = []byte{
	0x55, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

var errShortWrite = errors.New("short write")

// Port implements pn532.Port over a serial line.
type Port struct {
	conn     io.ReadWriter
	closer   io.Closer // nil when built with NewWithConn
	clock    pn532.Clock
	portName string
	buf      []byte
	scratch  []byte
	mu       syncutil.Mutex
	closed   bool
}

// probeTimeout bounds the read made by IsReady so readiness polling keeps
// its own cadence.
const probeTimeout = pn532.TransportReadyInitialDelay

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// readTimeout bounds a single serial read. Windows drivers need longer.
func readTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// New opens portName at 115200 8N1.
func New(portName string) (*Port, error) {
	sp, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	if err := sp.SetReadTimeout(readTimeout()); err != nil {
		_ = sp.Close()
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	p := NewWithConn(sp, portName, pn532.SystemClock())
	p.closer = sp
	return p, nil
}

// NewWithConn builds a port on an open stream. A read that returns no
// bytes is treated as a read timeout. Close does not close conn.
func NewWithConn(conn io.ReadWriter, name string, clock pn532.Clock) *Port {
	if clock == nil {
		clock = pn532.SystemClock()
	}
	return &Port{
		conn:     conn,
		portName: name,
		clock:    clock,
		scratch:  make([]byte, frame.HeaderLength+frame.MaxPayload+2),
	}
}

// Write drops any unread bytes and sends data. Command frames are preceded
// by the wake-up preamble; an ACK sent to abort a command is not, so the
// chip sees it immediately.
func (p *Port) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return pn532.NewTransportError("write", p.portName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}
	p.buf = p.buf[:0]
	if r, ok := p.conn.(inputResetter); ok {
		_ = r.ResetInputBuffer()
	}

	out := data
	if !frame.IsACK(data) {
		out = make([]byte, 0, len(wakeUpPreamble)+len(data))
		out = append(out, wakeUpPreamble...)
		out = append(out, data...)
	}

	n, err := p.conn.Write(out)
	if err != nil {
		return pn532.NewTransportError("write", p.portName, err, pn532.ErrorTypeTransient)
	}
	if n != len(out) {
		return pn532.NewTransportError("write", p.portName, errShortWrite, pn532.ErrorTypeTransient)
	}
	return p.drainWithRetry()
}

// IsReady reports whether bytes are buffered, reading once if none are.
// The probe read is bounded by probeTimeout when the line supports it.
func (p *Port) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if len(p.buf) > 0 {
		return true
	}

	if t, ok := p.conn.(readTimeoutSetter); ok {
		if err := t.SetReadTimeout(probeTimeout); err == nil {
			defer func() { _ = t.SetReadTimeout(readTimeout()) }()
		}
	}
	if _, err := p.fill(); err != nil {
		return false
	}
	return len(p.buf) > 0
}

// Read returns n bytes, reading from the line until they have arrived or
// pn532.TransportReadyTimeout passes without them.
func (p *Port) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, pn532.NewTransportError("read", p.portName, pn532.ErrTransportClosed, pn532.ErrorTypePermanent)
	}

	deadline := p.clock.Now().Add(pn532.TransportReadyTimeout)
	delay := pn532.TransportReadyInitialDelay
	for len(p.buf) < n {
		got, err := p.fill()
		if err != nil {
			return nil, pn532.NewTransportError("read", p.portName, err, pn532.ErrorTypeTransient)
		}
		if got > 0 {
			continue
		}
		if !p.clock.Now().Before(deadline) {
			return nil, pn532.NewTransportError("read", p.portName,
				fmt.Errorf("%w: %d of %d bytes", pn532.ErrTimeout, len(p.buf), n), pn532.ErrorTypeTimeout)
		}
		_ = p.clock.Sleep(context.Background(), delay)
		delay = min(delay*2, pn532.TransportReadyMaxDelay)
	}

	out := make([]byte, n)
	copy(out, p.buf)
	p.buf = append(p.buf[:0], p.buf[n:]...)
	return out, nil
}

// fill performs one read from the line into buf.
func (p *Port) fill() (int, error) {
	n, err := p.conn.Read(p.scratch)
	if n > 0 {
		p.buf = append(p.buf, p.scratch[:n]...)
	}
	if err != nil {
		return n, fmt.Errorf("UART read failed: %w", err)
	}
	return n, nil
}

// drainer and inputResetter are implemented by serial.Port.
type drainer interface {
	Drain() error
}

type inputResetter interface {
	ResetInputBuffer() error
}

type readTimeoutSetter interface {
	SetReadTimeout(t time.Duration) error
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to be transmitted, retrying
// interrupted system calls.
func (p *Port) drainWithRetry() error {
	d, ok := p.conn.(drainer)
	if !ok {
		return nil
	}

	const maxRetries = 3
	delay := 2 * time.Millisecond

	var err error
	for attempt := range maxRetries {
		if err = d.Drain(); err == nil {
			return nil
		}
		if !isInterruptedSystemCall(err) || attempt == maxRetries-1 {
			break
		}
		_ = p.clock.Sleep(context.Background(), delay)
		delay *= 2
	}
	return pn532.NewTransportError("drain", p.portName, err, pn532.ErrorTypeTransient)
}

// Close closes the serial port. It is safe to call more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.buf = nil
	if p.closer != nil {
		if err := p.closer.Close(); err != nil {
			return fmt.Errorf("UART close failed: %w", err)
		}
	}
	return nil
}

// Type returns the transport type
func (*Port) Type() pn532.TransportType {
	return pn532.TransportUART
}

func (p *Port) String() string {
	return p.portName
}

var _ pn532.Port = (*Port)(nil)
