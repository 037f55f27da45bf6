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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned by Encode when the payload does not fit a
// normal information frame.
var ErrPayloadTooLarge = errors.New("frame payload too large")

// ErrMalformed matches every MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed response frame")

// Check names a single validation step of DecodeResponse. Checks run in
// declaration order and decoding stops at the first failure.
type Check int

const (
	// CheckPreamble verifies the 00 00 FF preamble and start code.
	CheckPreamble Check = iota + 1
	// CheckLengthChecksum verifies LEN + LCS == 0 (mod 256).
	CheckLengthChecksum
	// CheckDirection verifies the device-to-host TFI.
	CheckDirection
	// CheckOpcode verifies the response opcode is the command code plus one.
	CheckOpcode
	// CheckLength verifies LEN covers TFI and opcode and the body carries
	// the declared payload plus DCS.
	CheckLength
	// CheckDataChecksum verifies DCS over TFI, opcode and payload.
	CheckDataChecksum
	// CheckPostamble verifies the byte after DCS, when it was read.
	CheckPostamble
)

func (c Check) String() string {
	switch c {
	case CheckPreamble:
		return "preamble"
	case CheckLengthChecksum:
		return "length checksum"
	case CheckDirection:
		return "direction"
	case CheckOpcode:
		return "opcode"
	case CheckLength:
		return "payload length"
	case CheckDataChecksum:
		return "data checksum"
	case CheckPostamble:
		return "postamble"
	default:
		return fmt.Sprintf("check(%d)", int(c))
	}
}

// MalformedError reports which structural or checksum check a response
// frame failed. Got and Want hold the offending and the expected byte where
// that is meaningful.
type MalformedError struct {
	Check Check
	Got   int
	Want  int
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%v: %s check failed (got 0x%02X, want 0x%02X)", ErrMalformed, e.Check, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrMalformed) true for any MalformedError.
func (*MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(check Check, got, want int) error {
	return &MalformedError{Check: check, Got: got, Want: want}
}

// Checksum returns the two's complement of the byte sum of data, i.e. the
// value that makes the sum of data and the checksum zero (mod 256).
func Checksum(data ...[]byte) byte {
	var sum byte
	for _, part := range data {
		for _, b := range part {
			sum += b
		}
	}
	return ^sum + 1
}

// Encode wraps payload (command byte followed by its parameters) into an
// outbound frame.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}

	length := byte(len(payload) + 1)
	buf := make([]byte, 0, len(payload)+Overhead)
	buf = append(buf, Preamble, StartCode1, StartCode2, length, ^length+1, HostToPn532)
	buf = append(buf, payload...)
	buf = append(buf, Checksum([]byte{HostToPn532}, payload), Postamble)
	return buf, nil
}

// DecodeHeader validates the first HeaderLength bytes of a response to
// command and returns the number of payload bytes that follow the opcode.
func DecodeHeader(header []byte, command byte) (int, error) {
	if len(header) < HeaderLength {
		return 0, malformed(CheckLength, len(header), HeaderLength)
	}
	if header[0] != Preamble || header[1] != StartCode1 || header[2] != StartCode2 {
		return 0, malformed(CheckPreamble, int(header[2]), StartCode2)
	}

	length, lcs := header[3], header[4]
	if length+lcs != 0 {
		return 0, malformed(CheckLengthChecksum, int(lcs), int(^length+1))
	}
	if header[5] != Pn532ToHost {
		return 0, malformed(CheckDirection, int(header[5]), Pn532ToHost)
	}
	if header[6] != command+1 {
		return 0, malformed(CheckOpcode, int(header[6]), int(command+1))
	}
	if length < 2 {
		return 0, malformed(CheckLength, int(length), 2)
	}
	return int(length) - 2, nil
}

// DecodeResponse validates a complete response frame to command, given as
// its header and the bytes read after it (payload, DCS and usually the
// postamble), and returns the payload with framing stripped. A body that
// stops after DCS is accepted.
func DecodeResponse(header, body []byte, command byte) ([]byte, error) {
	payloadLen, err := DecodeHeader(header, command)
	if err != nil {
		return nil, err
	}
	if len(body) < payloadLen+1 {
		return nil, malformed(CheckLength, len(body), payloadLen+1)
	}

	payload := body[:payloadLen]
	want := Checksum(header[5:HeaderLength], payload)
	if got := body[payloadLen]; got != want {
		return nil, malformed(CheckDataChecksum, int(got), int(want))
	}
	if len(body) > payloadLen+1 && body[payloadLen+1] != Postamble {
		return nil, malformed(CheckPostamble, int(body[payloadLen+1]), Postamble)
	}

	out := make([]byte, payloadLen)
	copy(out, payload)
	return out, nil
}

// IsACK reports whether b is exactly the ACK frame.
func IsACK(b []byte) bool {
	return bytes.Equal(b, AckFrame)
}

// IsNACK reports whether b is exactly the NACK frame.
func IsNACK(b []byte) bool {
	return bytes.Equal(b, NackFrame)
}
