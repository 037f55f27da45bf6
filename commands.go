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

// PN532 Command codes
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSamConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInListPassiveTarget = 0x4A
)

// RFConfiguration items
const (
	rfItemField byte = 0x01

	rfFieldOff byte = 0x00
	rfFieldOn  byte = 0x01
)

// InListPassiveTarget arguments: one target, 106 kbps type A.
const (
	passiveMaxTargets byte = 0x01
	passiveBaudTypeA  byte = 0x00
)

// SAMMode represents the SAM configuration mode
type SAMMode byte

// SAMModeNormal disables the SAM; the only mode a reader needs.
const SAMModeNormal SAMMode = 0x01

// SAM timeout and IRQ sent during initialization: 0x14 * 50 ms = 1 s
// virtual card timeout, IRQ pin used.
const (
	samDefaultTimeout byte = 0x14
	samUseIRQ         byte = 0x01
)
