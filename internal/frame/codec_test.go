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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildResponse assembles an inbound frame for opcode the way a PN532 would.
func buildResponse(opcode byte, payload []byte) (header, body []byte) {
	length := byte(len(payload) + 2)
	header = []byte{Preamble, StartCode1, StartCode2, length, ^length + 1, Pn532ToHost, opcode}
	body = append(append([]byte{}, payload...), Checksum([]byte{Pn532ToHost, opcode}, payload), Postamble)
	return header, body
}

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data [][]byte
		want byte
	}{
		{name: "empty", data: nil, want: 0x00},
		{name: "single byte", data: [][]byte{{0x01}}, want: 0xFF},
		{name: "firmware command", data: [][]byte{{0xD4, 0x02}}, want: 0x2A},
		{name: "split parts", data: [][]byte{{0xD4}, {0x02}}, want: 0x2A},
		{name: "overflow", data: [][]byte{{0xFF, 0x01}}, want: 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Checksum(tt.data...))
		})
	}
}

func TestEncode_GetFirmwareVersion(t *testing.T) {
	t.Parallel()
	got, err := Encode([]byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, got)
}

func TestEncode_InListPassiveTarget(t *testing.T) {
	t.Parallel()
	got, err := Encode([]byte{0x4A, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x04, 0xFC, 0xD4, 0x4A, 0x01, 0x00, 0xE1, 0x00}, got)
}

func TestEncode_ChecksumsForEveryLength(t *testing.T) {
	t.Parallel()
	for n := 0; n <= MaxPayload; n++ {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i*7 + n)
		}

		got, err := Encode(payload)
		require.NoError(t, err, "length %d", n)
		require.Len(t, got, n+Overhead)

		length, lcs := got[3], got[4]
		assert.Equal(t, byte(n+1), length)
		assert.Zero(t, length+lcs, "LEN+LCS for length %d", n)

		var sum byte
		for _, b := range got[5 : 5+int(length)+1] {
			sum += b
		}
		assert.Zero(t, sum, "TFI+payload+DCS for length %d", n)
		assert.Equal(t, byte(HostToPn532), got[5])
		assert.Equal(t, byte(Postamble), got[len(got)-1])
	}
}

func TestEncode_TooLarge(t *testing.T) {
	t.Parallel()
	_, err := Encode(make([]byte, MaxPayload+1))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeResponse_PassiveTarget(t *testing.T) {
	t.Parallel()
	payload := []byte{0x01, 0x01, 0x00, 0x04, 0x08, 0x04, 0xAB, 0xCD, 0xEF, 0x01}
	header, body := buildResponse(0x4B, payload)

	got, err := DecodeResponse(header, body, 0x4A)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeResponse_EmptyPayload(t *testing.T) {
	t.Parallel()
	header, body := buildResponse(0x15, nil)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD5, 0x15}, header)

	got, err := DecodeResponse(header, body, 0x14)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeResponse_Checks(t *testing.T) {
	t.Parallel()
	firmware := []byte{0x32, 0x01, 0x06, 0x07}

	tests := []struct {
		mutate func(header, body []byte) ([]byte, []byte)
		name   string
		want   Check
	}{
		{
			name: "bad preamble",
			mutate: func(h, b []byte) ([]byte, []byte) {
				h[2] = 0xFE
				return h, b
			},
			want: CheckPreamble,
		},
		{
			name: "bad length checksum",
			mutate: func(h, b []byte) ([]byte, []byte) {
				h[4]++
				return h, b
			},
			want: CheckLengthChecksum,
		},
		{
			name: "host direction byte",
			mutate: func(h, b []byte) ([]byte, []byte) {
				h[5] = HostToPn532
				return h, b
			},
			want: CheckDirection,
		},
		{
			name: "error frame TFI",
			mutate: func(h, b []byte) ([]byte, []byte) {
				h[5] = 0x7F
				return h, b
			},
			want: CheckDirection,
		},
		{
			name: "wrong opcode",
			mutate: func(h, b []byte) ([]byte, []byte) {
				h[6] = 0x15
				return h, b
			},
			want: CheckOpcode,
		},
		{
			name: "truncated body",
			mutate: func(h, b []byte) ([]byte, []byte) {
				return h, b[:3]
			},
			want: CheckLength,
		},
		{
			name: "short header",
			mutate: func(h, b []byte) ([]byte, []byte) {
				return h[:6], b
			},
			want: CheckLength,
		},
		{
			name: "bad data checksum",
			mutate: func(h, b []byte) ([]byte, []byte) {
				b[len(b)-2]++
				return h, b
			},
			want: CheckDataChecksum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			header, body := buildResponse(0x03, firmware)
			header, body = tt.mutate(header, body)

			_, err := DecodeResponse(header, body, 0x02)
			require.ErrorIs(t, err, ErrMalformed)

			var me *MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.want, me.Check)
		})
	}
}

func TestDecodeHeader_LengthBelowMinimum(t *testing.T) {
	t.Parallel()
	// LEN=1 passes the length checksum but cannot hold TFI and opcode.
	header := []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0xD5, 0x03}
	_, err := DecodeHeader(header, 0x02)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, CheckLength, me.Check)
}

func TestDecodeHeader_PayloadLength(t *testing.T) {
	t.Parallel()
	header, _ := buildResponse(0x4B, make([]byte, 12))
	n, err := DecodeHeader(header, 0x4A)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

// Any single-byte change outside LCS and DCS must be caught.
func TestDecodeResponse_RejectsNearMisses(t *testing.T) {
	t.Parallel()
	payload := []byte{0x01, 0x01, 0x00, 0x04, 0x08, 0x04, 0xAB, 0xCD, 0xEF, 0x01}
	header, body := buildResponse(0x4B, payload)
	full := append(append([]byte{}, header...), body...)

	dcsIndex := len(full) - 2
	skip := map[int]bool{4: true, dcsIndex: true}

	for i := range full {
		if skip[i] {
			continue
		}
		for _, delta := range []byte{0x01, 0x80, 0xFF} {
			mutated := append([]byte{}, full...)
			mutated[i] += delta

			_, err := DecodeResponse(mutated[:HeaderLength], mutated[HeaderLength:], 0x4A)
			assert.ErrorIs(t, err, ErrMalformed, "byte %d changed by 0x%02X", i, delta)
		}
	}
}

func TestDecodeResponse_Postamble(t *testing.T) {
	t.Parallel()
	header, body := buildResponse(0x03, []byte{0x32})

	payload, err := DecodeResponse(header, body, 0x02)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32}, payload)

	payload, err = DecodeResponse(header, body[:len(body)-1], 0x02)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x32}, payload)

	bad := append([]byte{}, body...)
	bad[len(bad)-1] = 0x7E
	_, err = DecodeResponse(header, bad, 0x02)

	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, CheckPostamble, me.Check)
	assert.Equal(t, 0x7E, me.Got)
}

func TestIsACK(t *testing.T) {
	t.Parallel()
	assert.True(t, IsACK([]byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}))
	assert.False(t, IsACK(NackFrame))
	assert.False(t, IsACK([]byte{0x00, 0x00, 0xFF, 0x00, 0xFF}))
	assert.False(t, IsACK(nil))
	assert.True(t, IsNACK(NackFrame))
	assert.False(t, IsNACK(AckFrame))
}

func TestCheck_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "data checksum", CheckDataChecksum.String())
	assert.Equal(t, "check(42)", Check(42).String())

	err := &MalformedError{Check: CheckOpcode, Got: 0x15, Want: 0x03}
	assert.Contains(t, err.Error(), "opcode check failed")
	assert.Contains(t, err.Error(), "got 0x15")
}
