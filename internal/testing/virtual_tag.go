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
	"encoding/hex"
	"sync/atomic"
)

// VirtualTag represents a simulated ISO14443A card in the reader's field.
type VirtualTag struct {
	Type    string
	UID     []byte
	ATQA    [2]byte
	present atomic.Bool
	SAK     byte
}

func newVirtualTag(tagType string, uid, fallback []byte, atqa [2]byte, sak byte) *VirtualTag {
	if uid == nil {
		uid = fallback
	}
	tag := &VirtualTag{
		Type: tagType,
		UID:  append([]byte(nil), uid...),
		ATQA: atqa,
		SAK:  sak,
	}
	tag.present.Store(true)
	return tag
}

// NewVirtualNTAG213 creates a virtual NTAG213 tag (7-byte UID)
func NewVirtualNTAG213(uid []byte) *VirtualTag {
	return newVirtualTag("NTAG213", uid, TestNTAG213UID, [2]byte{0x00, 0x44}, 0x00)
}

// NewVirtualMIFARE1K creates a virtual MIFARE Classic 1K tag
func NewVirtualMIFARE1K(uid []byte) *VirtualTag {
	return newVirtualTag("MIFARE1K", uid, TestMIFARE1KUID, [2]byte{0x00, 0x04}, 0x08)
}

// NewVirtualMIFARE4K creates a virtual MIFARE Classic 4K tag
func NewVirtualMIFARE4K(uid []byte) *VirtualTag {
	return newVirtualTag("MIFARE4K", uid, TestMIFARE4KUID, [2]byte{0x00, 0x02}, 0x18)
}

// GetUIDString returns the UID as a hex string
func (v *VirtualTag) GetUIDString() string {
	return hex.EncodeToString(v.UID)
}

// Remove takes the tag out of the field.
func (v *VirtualTag) Remove() {
	v.present.Store(false)
}

// Insert puts the tag back into the field.
func (v *VirtualTag) Insert() {
	v.present.Store(true)
}

// IsPresent reports whether the tag is in the field.
func (v *VirtualTag) IsPresent() bool {
	return v.present.Load()
}

// targetData is the per-target block of an InListPassiveTarget response at
// 106 kbps type A: Tg + SENS_RES(2) + SEL_RES + NFCIDLength + NFCID1.
func (v *VirtualTag) targetData(tg byte) []byte {
	data := make([]byte, 0, 5+len(v.UID))
	data = append(data, tg, v.ATQA[0], v.ATQA[1], v.SAK, byte(len(v.UID)))
	return append(data, v.UID...)
}
