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
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/ZaparooProject/go-pn532-presence/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFatal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport closed", err: ErrTransportClosed, want: true},
		{name: "EOF", err: io.EOF, want: true},
		{name: "closed pipe", err: fmt.Errorf("read: %w", io.ErrClosedPipe), want: true},
		{name: "transport read", err: ErrTransportRead, want: false},
		{name: "transport write", err: ErrTransportWrite, want: false},
		{name: "no ACK", err: ErrNoACK, want: false},
		{name: "timeout", err: ErrTimeout, want: false},
		{name: "malformed response", err: &MalformedResponseError{Check: frame.CheckDataChecksum}, want: false},
		{name: "random error", err: errors.New("random error"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestIsFatal_TransportError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		typ  ErrorType
		want bool
	}{
		{name: "permanent is fatal", typ: ErrorTypePermanent, want: true},
		{name: "transient is not fatal", typ: ErrorTypeTransient, want: false},
		{name: "timeout is not fatal", typ: ErrorTypeTimeout, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewTransportError("read", "/dev/ttyUSB0", errors.New("bus error"), tt.typ)
			assert.Equal(t, tt.want, IsFatal(err))
			assert.Equal(t, tt.want, IsFatal(fmt.Errorf("poll: %w", err)))
		})
	}
}

func TestIsFatal_SyscallErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "EIO", err: syscall.EIO, want: true},
		{name: "ENXIO", err: syscall.ENXIO, want: true},
		{name: "ENODEV", err: syscall.ENODEV, want: true},
		{name: "wrapped EIO", err: fmt.Errorf("write failed: %w", syscall.EIO), want: true},
		{
			name: "double-wrapped ENXIO",
			err:  fmt.Errorf("operation failed: %w", fmt.Errorf("write: %w", syscall.ENXIO)),
			want: true,
		},
		{name: "EAGAIN", err: syscall.EAGAIN, want: false},
		{name: "EINTR", err: syscall.EINTR, want: false},
		{name: "ETIMEDOUT", err: syscall.ETIMEDOUT, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err), "IsFatal(%v)", tt.err)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	t.Parallel()

	t.Run("transient cause keeps both sentinels", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("i2c: nack")
		err := transportFailure("write", "i2c-1", ErrTransportWrite, cause)

		require.ErrorIs(t, err, ErrTransportWrite)
		require.ErrorIs(t, err, cause)
		assert.Equal(t, ErrorTypeTransient, err.Type)
		assert.False(t, IsFatal(err))
	})

	t.Run("closed port is permanent", func(t *testing.T) {
		t.Parallel()
		err := transportFailure("read", "", ErrTransportRead, ErrTransportClosed)
		assert.Equal(t, ErrorTypePermanent, err.Type)
		assert.True(t, IsFatal(err))
	})

	t.Run("device gone is permanent", func(t *testing.T) {
		t.Parallel()
		err := transportFailure("read", "/dev/ttyUSB0", ErrTransportRead, syscall.ENODEV)
		assert.Equal(t, ErrorTypePermanent, err.Type)
	})

	t.Run("adapter classification wins", func(t *testing.T) {
		t.Parallel()
		cause := NewTransportError("tx", "spi0", errors.New("slow bus"), ErrorTypeTimeout)
		err := transportFailure("read", "spi0", ErrTransportRead, cause)
		assert.Equal(t, ErrorTypeTimeout, err.Type)
	})
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()
	withPort := NewTransportError("read", "/dev/ttyUSB0", ErrTransportRead, ErrorTypeTransient)
	assert.Equal(t, "read /dev/ttyUSB0: transport read failed", withPort.Error())

	noPort := NewTransportError("write", "", ErrTransportWrite, ErrorTypeTransient)
	assert.Equal(t, "write: transport write failed", noPort.Error())
	assert.Equal(t, ErrTransportWrite, noPort.Unwrap())
}

func TestErrorType_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "transient", ErrorTypeTransient.String())
	assert.Equal(t, "permanent", ErrorTypePermanent.String())
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
	assert.Equal(t, "ErrorType(9)", ErrorType(9).String())
}

func TestInitError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("send command: %w", ErrNoACK)

	firmware := &InitError{Stage: StageFirmware, Attempts: 3, Err: cause}
	require.ErrorIs(t, firmware, ErrFirmwareQueryFailed)
	require.ErrorIs(t, firmware, ErrNoACK)
	assert.NotErrorIs(t, firmware, ErrSAMConfigFailed)
	assert.Contains(t, firmware.Error(), "after 3 attempt(s)")

	sam := &InitError{Stage: StageSAM, Attempts: 1, Err: ErrTimeout}
	require.ErrorIs(t, sam, ErrSAMConfigFailed)
	require.ErrorIs(t, sam, ErrTimeout)
	assert.NotErrorIs(t, sam, ErrFirmwareQueryFailed)

	var ie *InitError
	require.ErrorAs(t, fmt.Errorf("setup: %w", sam), &ie)
	assert.Equal(t, StageSAM, ie.Stage)
}

func TestMalformedResponseError(t *testing.T) {
	t.Parallel()
	var err error = &MalformedResponseError{Check: frame.CheckOpcode, Got: 0x15, Want: 0x03}
	require.ErrorIs(t, err, ErrMalformedResponse)

	var me *MalformedResponseError
	require.ErrorAs(t, fmt.Errorf("execute: %w", err), &me)
	assert.Equal(t, frame.CheckOpcode, me.Check)
}

func TestTraceBuffer_BasicOperations(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("UART", "/dev/ttyUSB0", 10)
	tb.RecordTX([]byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, "Cmd 0x02")
	tb.RecordRX([]byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}, "ACK")
	tb.RecordRX([]byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8, 0x00}, "Response")

	wrappedErr := tb.WrapError(errors.New("test error"))

	var te *TraceableError
	require.ErrorAs(t, wrappedErr, &te)
	require.Len(t, te.Trace, 3)
	assert.Equal(t, TraceTX, te.Trace[0].Direction)
	assert.Equal(t, TraceRX, te.Trace[1].Direction)
	assert.Equal(t, "UART", te.Transport)
	assert.Equal(t, "/dev/ttyUSB0", te.Port)
	assert.Equal(t, "test error", te.Error())
}

func TestTraceBuffer_CopiesData(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("SPI", "spi0", 4)
	data := []byte{0x01, 0x02}
	tb.RecordTX(data, "")
	data[0] = 0xFF

	te := GetTrace(tb.WrapError(errors.New("x")))
	require.NotNil(t, te)
	assert.Equal(t, []byte{0x01, 0x02}, te.Trace[0].Data)
}

func TestTraceableError_Unwrap(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("I2C", "/dev/i2c-1", 10)
	tb.RecordTX([]byte{0x01, 0x02}, "test")
	wrappedErr := tb.WrapError(ErrNoACK)

	require.ErrorIs(t, wrappedErr, ErrNoACK)
	var te *TraceableError
	require.ErrorAs(t, wrappedErr, &te)
	assert.Equal(t, ErrNoACK, te.Unwrap())
}

func TestTraceableError_FormatTrace(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("SPI", "/dev/spidev0.0", 10)
	tb.RecordTX([]byte{0xD4, 0x02}, "GetFirmware")
	tb.RecordRX([]byte{0xD5, 0x03, 0x32}, "")
	tb.RecordTimeout("not ready")

	te := GetTrace(tb.WrapError(errors.New("timeout")))
	require.NotNil(t, te)

	formatted := te.FormatTrace()
	assert.Contains(t, formatted, "[SPI:/dev/spidev0.0] Wire trace (3 entries)")
	assert.Contains(t, formatted, "> D4 02 (GetFirmware)")
	assert.Contains(t, formatted, "< D5 03 32\n")
	assert.Contains(t, formatted, "TIMEOUT: not ready")
}

func TestTraceableError_FormatTrace_Empty(t *testing.T) {
	t.Parallel()

	te := GetTrace(NewTraceBuffer("UART", "/dev/ttyUSB0", 10).WrapError(errors.New("test")))
	require.NotNil(t, te)
	assert.Contains(t, te.FormatTrace(), "no trace data")
}

func TestTraceBuffer_EvictsOldest(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("UART", "test", 3)
	tb.RecordTX([]byte{0x01}, "first")
	tb.RecordTX([]byte{0x02}, "second")
	tb.RecordTX([]byte{0x03}, "third")
	tb.RecordTX([]byte{0x04}, "fourth")

	te := GetTrace(tb.WrapError(errors.New("test")))
	require.NotNil(t, te)
	require.Len(t, te.Trace, 3)
	assert.Equal(t, "second", te.Trace[0].Note)
	assert.Equal(t, "fourth", te.Trace[2].Note)
}

func TestTraceBuffer_DefaultSize(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("UART", "test", 0)
	for i := range DefaultTraceSize + 4 {
		tb.RecordTX([]byte{byte(i)}, "")
	}
	te := GetTrace(tb.WrapError(errors.New("test")))
	require.NotNil(t, te)
	assert.Len(t, te.Trace, DefaultTraceSize)
}

func TestTraceBuffer_WrapNilAndClear(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("UART", "test", 10)
	tb.RecordTX([]byte{0x01}, "first")
	require.NoError(t, tb.WrapError(nil))

	tb.Clear()
	te := GetTrace(tb.WrapError(errors.New("test")))
	require.NotNil(t, te)
	assert.Empty(t, te.Trace)
}

func TestGetTrace_Plain(t *testing.T) {
	t.Parallel()
	assert.Nil(t, GetTrace(errors.New("plain error")))
	assert.Nil(t, GetTrace(nil))
}

func TestTraceEntry_String(t *testing.T) {
	t.Parallel()

	entry := TraceEntry{
		Direction: TraceTX,
		Data:      []byte{0xD4, 0x02},
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		Note:      "GetFirmware",
	}
	assert.Equal(t, "[03:04:05.006] TX: D4 02 (GetFirmware)", entry.String())
}

func TestFormatHexBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(empty)", formatHexBytes(nil))
	assert.Equal(t, "00 00 FF", formatHexBytes([]byte{0x00, 0x00, 0xFF}))

	longData := make([]byte, 50)
	formatted := formatHexBytes(longData)
	assert.True(t, strings.HasSuffix(formatted, "... (50 bytes total)"))
}
