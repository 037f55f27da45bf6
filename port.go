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
	"fmt"
	"io"
)

// Port is the byte-level link to a PN532. It moves raw bytes and knows
// nothing about frames; adapters for SPI, I2C and UART live under transport/.
// A Port is used by one Session at a time.
type Port interface {
	// Write sends a complete frame to the chip.
	Write(data []byte) error

	// Read returns exactly n bytes from the chip or an error.
	Read(n int) ([]byte, error)

	// IsReady reports whether the chip has a response pending. It must not
	// block for longer than a single bus transaction.
	IsReady() bool
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportSPI represents SPI bus transport.
	TransportSPI TransportType = "spi"
)

// typedPort is implemented by adapters that know which bus they drive.
type typedPort interface {
	Type() TransportType
}

// PortType returns the transport type of p, or "unknown".
func PortType(p Port) TransportType {
	if tp, ok := p.(typedPort); ok {
		return tp.Type()
	}
	return "unknown"
}

// PortName returns a human readable identifier for p, used in errors and
// wire traces.
func PortName(p Port) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}

// ClosePort closes p if it supports closing.
func ClosePort(p Port) error {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close %s port: %w", PortType(p), err)
		}
	}
	return nil
}
