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

import "time"

// Session timing constants control a single command exchange.
const (
	// DefaultReadyTimeout is the ceiling on waiting for a response after the
	// ACK. InListPassiveTarget with one retry returns well within it.
	DefaultReadyTimeout = 1 * time.Second
	// ReadyPollInterval is how long the session yields between readiness
	// checks.
	ReadyPollInterval = 1 * time.Millisecond
	// DefaultTraceSize is the number of wire trace entries kept per command.
	DefaultTraceSize = 16
)

// Initialization retry constants control the firmware version query.
const (
	// FirmwareQueryAttempts is the total number of GetFirmwareVersion
	// attempts before initialization fails.
	FirmwareQueryAttempts = 3
	// FirmwareRetryDelay is the fixed delay between firmware query attempts.
	FirmwareRetryDelay = 50 * time.Millisecond
)

// Transport readiness constants bound how long adapters wait on the
// status register before clocking out data.
const (
	// TransportReadyTimeout caps the wait inside an adapter Read.
	TransportReadyTimeout = 100 * time.Millisecond
	// TransportReadyInitialDelay is the first delay between status polls.
	TransportReadyInitialDelay = 1 * time.Millisecond
	// TransportReadyMaxDelay caps the delay between status polls.
	TransportReadyMaxDelay = 10 * time.Millisecond
)
