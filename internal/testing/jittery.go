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

package testing

import (
	"io"
	"math/rand/v2"
)

// JitterConfig configures the behavior of JitteryConnection.
type JitterConfig struct {
	// FragmentMinBytes is the smallest non-empty read returned.
	FragmentMinBytes int
	// EmptyReadEvery makes every Nth read return no data, as a serial
	// read timeout does (0 disables).
	EmptyReadEvery int
	// Seed makes fragmentation reproducible (0 = random).
	Seed uint64
	// USBBoundaryStress splits reads at 64-byte USB packet boundaries.
	USBBoundaryStress bool
}

// DefaultJitterConfig returns a sensible default configuration for testing.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		FragmentMinBytes: 1,
		EmptyReadEvery:   3,
	}
}

// JitteryConnection wraps an io.ReadWriter to simulate USB-UART bridges
// (FTDI, CH340) that deliver a response in unpredictable fragments with
// empty reads in between. Writes pass through unchanged.
type JitteryConnection struct {
	backend   io.ReadWriter
	rng       *rand.Rand
	readBuf   []byte
	config    JitterConfig
	bytesRead int
	reads     int
}

// NewJitteryConnection wraps a backend io.ReadWriter with jitter simulation.
func NewJitteryConnection(backend io.ReadWriter, config JitterConfig) *JitteryConnection {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // Test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // Test code, not crypto
	}

	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}

	return &JitteryConnection{
		backend: backend,
		config:  config,
		rng:     rng,
	}
}

// Write passes writes through to the backend without modification.
func (j *JitteryConnection) Write(data []byte) (int, error) {
	return j.backend.Write(data) //nolint:wrapcheck // Pass-through wrapper
}

// Read returns a random-sized prefix of the data available from the backend.
func (j *JitteryConnection) Read(buf []byte) (int, error) {
	j.reads++
	if j.config.EmptyReadEvery > 0 && j.reads%j.config.EmptyReadEvery == 0 {
		return 0, nil
	}

	if len(j.readBuf) == 0 {
		tmp := make([]byte, 1024)
		n, err := j.backend.Read(tmp)
		if err != nil {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		j.readBuf = append(j.readBuf, tmp[:n]...)
	}
	if len(j.readBuf) == 0 || len(buf) == 0 {
		return 0, nil
	}

	toReturn := min(len(j.readBuf), len(buf))

	if j.config.USBBoundaryStress {
		untilBoundary := 64 - j.bytesRead%64
		if untilBoundary < toReturn {
			toReturn = untilBoundary
		}
	}

	if toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	j.bytesRead += toReturn
	return toReturn, nil
}
