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

import "fmt"

// FirmwareVersion contains PN532 firmware information
type FirmwareVersion struct {
	IC       byte // 0x32 for a PN532
	Version  byte
	Revision byte
	Support  byte // bit 0 ISO14443A, bit 1 ISO14443B, bit 2 ISO18092
}

// ParseFirmwareVersion decodes a GetFirmwareVersion payload.
func ParseFirmwareVersion(payload []byte) (*FirmwareVersion, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: firmware version needs 4 bytes, got %d", ErrInvalidResponse, len(payload))
	}
	return &FirmwareVersion{
		IC:       payload[0],
		Version:  payload[1],
		Revision: payload[2],
		Support:  payload[3],
	}, nil
}

func (f FirmwareVersion) String() string {
	return fmt.Sprintf("PN5%02X v%d.%d", f.IC, f.Version, f.Revision)
}

// SupportIso14443a reports ISO/IEC 14443 type A support.
func (f FirmwareVersion) SupportIso14443a() bool {
	return f.Support&0x01 != 0
}

// SupportIso14443b reports ISO/IEC 14443 type B support.
func (f FirmwareVersion) SupportIso14443b() bool {
	return f.Support&0x02 != 0
}

// SupportIso18092 reports ISO/IEC 18092 (NFCIP-1) support.
func (f FirmwareVersion) SupportIso18092() bool {
	return f.Support&0x04 != 0
}
