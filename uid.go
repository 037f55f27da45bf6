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

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxUIDLength is the longest ISO14443A UID (triple size).
const MaxUIDLength = 10

// UID is a card identifier as reported by InListPassiveTarget.
type UID []byte

// Equal reports whether u and other have the same length and bytes.
func (u UID) Equal(other UID) bool {
	return bytes.Equal(u, other)
}

// Clone returns a copy of u that shares no memory with it.
func (u UID) Clone() UID {
	if u == nil {
		return nil
	}
	return append(UID(nil), u...)
}

// String renders u as upper-case hex pairs separated by dashes, for example
// 74-10-37-94.
func (u UID) String() string {
	if len(u) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, b := range u {
		if i > 0 {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// ParseUID parses hex pairs separated by '-' or ':' (74-10-37-94 or
// 74:10:37:94), in either case.
func ParseUID(s string) (UID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidUID)
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ':' })
	if len(parts) > MaxUIDLength {
		return nil, fmt.Errorf("%w: %q has %d bytes (max %d)", ErrInvalidUID, s, len(parts), MaxUIDLength)
	}
	if strings.Count(s, "-")+strings.Count(s, ":") != len(parts)-1 {
		return nil, fmt.Errorf("%w: %q has empty byte", ErrInvalidUID, s)
	}

	uid := make(UID, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return nil, fmt.Errorf("%w: %q is not a hex byte", ErrInvalidUID, part)
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a hex byte", ErrInvalidUID, part)
		}
		uid[i] = b[0]
	}
	return uid, nil
}
