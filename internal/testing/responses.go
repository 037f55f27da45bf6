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

package testing

import "github.com/ZaparooProject/go-pn532-presence/internal/frame"

// BuildResponseFrame builds the complete device-to-host frame answering cmd.
func BuildResponseFrame(cmd byte, payload []byte) []byte {
	body := append([]byte{frame.Pn532ToHost, cmd + 1}, payload...)
	length := byte(len(body))

	out := make([]byte, 0, len(body)+7)
	out = append(out, frame.Preamble, frame.StartCode1, frame.StartCode2, length, ^length+1)
	out = append(out, body...)
	return append(out, frame.Checksum(body), frame.Postamble)
}

// BuildPassiveTargetPayload builds an InListPassiveTarget payload reporting
// one 106 kbps type A target.
func BuildPassiveTargetPayload(atqa [2]byte, sak byte, uid []byte) []byte {
	payload := make([]byte, 0, 6+len(uid))
	payload = append(payload, 0x01, 0x01, atqa[0], atqa[1], sak, byte(len(uid)))
	return append(payload, uid...)
}

// BuildNoTagPayload builds an InListPassiveTarget payload with no targets.
func BuildNoTagPayload() []byte {
	return []byte{0x00}
}

// Common UIDs for testing
var (
	// TestNTAG213UID is a sample NTAG213 UID
	TestNTAG213UID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}

	// TestMIFARE1KUID is a sample MIFARE Classic 1K UID
	TestMIFARE1KUID = []byte{0x74, 0x10, 0x37, 0x94}

	// TestMIFARE4KUID is a sample MIFARE Classic 4K UID
	TestMIFARE4KUID = []byte{0xAB, 0xCD, 0xEF, 0x01}
)
