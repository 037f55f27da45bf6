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

// PassiveTarget is the first target reported by InListPassiveTarget at
// 106 kbps type A.
type PassiveTarget struct {
	UID    UID
	ATQA   [2]byte // SENS_RES
	Number byte    // logical target number assigned by the PN532
	SAK    byte    // SEL_RES
}

// Offsets in an InListPassiveTarget payload.
const (
	targetCountOffset  = 0
	targetNumberOffset = 1
	targetATQAOffset   = 2
	targetSAKOffset    = 4
	targetUIDLenOffset = 5
	targetUIDOffset    = 6
)

// ParsePassiveTarget decodes an InListPassiveTarget payload. A target count
// of zero yields (nil, nil). A payload that reports a target but is too
// short to hold it, or whose UID length overruns it, is an error.
func ParsePassiveTarget(payload []byte) (*PassiveTarget, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty passive target response", ErrInvalidResponse)
	}
	if payload[targetCountOffset] == 0 {
		return nil, nil
	}
	if len(payload) < targetUIDOffset {
		return nil, fmt.Errorf("%w: passive target response has %d bytes, need %d",
			ErrInvalidResponse, len(payload), targetUIDOffset)
	}

	uidLen := int(payload[targetUIDLenOffset])
	if targetUIDOffset+uidLen > len(payload) {
		return nil, fmt.Errorf("%w: UID length %d exceeds response (%d bytes)",
			ErrInvalidResponse, uidLen, len(payload))
	}
	if uidLen == 0 {
		return nil, fmt.Errorf("%w: target reported an empty UID", ErrInvalidResponse)
	}

	return &PassiveTarget{
		Number: payload[targetNumberOffset],
		ATQA:   [2]byte{payload[targetATQAOffset], payload[targetATQAOffset+1]},
		SAK:    payload[targetSAKOffset],
		UID:    UID(payload[targetUIDOffset : targetUIDOffset+uidLen]).Clone(),
	}, nil
}
