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

// Package pn532 drives an NXP PN532 contactless reader for card presence
// detection.
//
// A Device talks to the chip through a Port (see transport/ for SPI, I2C
// and UART adapters). Every command is one Session exchange: the command
// frame is written, the ACK is read, the session waits up to one second
// for the chip to become ready and then reads and validates the response
// frame. Device.Initialize queries the firmware version (retried), puts
// the SAM in normal mode and applies the idle RF field policy.
//
// The polling package builds presence tracking, a backoff ladder and a
// health monitor on top of Device.
package pn532
