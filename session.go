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
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-pn532-presence/internal/frame"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
)

// SessionConfig tunes a Session. Zero values select the defaults.
type SessionConfig struct {
	Clock        Clock
	ReadyTimeout time.Duration
	TraceSize    int
}

// Session runs command/response exchanges over a Port. Only one command is
// ever outstanding: Execute calls are serialized.
type Session struct {
	port         Port
	clock        Clock
	readyTimeout time.Duration
	traceSize    int
	mu           syncutil.Mutex
}

// NewSession creates a session on port.
func NewSession(port Port, cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.TraceSize <= 0 {
		cfg.TraceSize = DefaultTraceSize
	}
	return &Session{
		port:         port,
		clock:        cfg.Clock,
		readyTimeout: cfg.ReadyTimeout,
		traceSize:    cfg.TraceSize,
	}
}

// Execute sends command with args and returns the response payload that
// follows the response opcode. The exchange is attempted exactly once.
//
// Errors match ErrNoACK, ErrTimeout, ErrMalformedResponse or a
// *TransportError, and carry the wire trace of the exchange (see
// TraceableError).
func (s *Session) Execute(ctx context.Context, command byte, args []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trace := NewTraceBuffer(string(PortType(s.port)), PortName(s.port), s.traceSize)
	payload, err := s.exchange(ctx, trace, command, args)
	if err != nil {
		return nil, trace.WrapError(err)
	}
	return payload, nil
}

// Abort writes an ACK frame, which makes the PN532 drop the command it is
// processing.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abort(nil)
}

func (s *Session) exchange(ctx context.Context, trace *TraceBuffer, command byte, args []byte) ([]byte, error) {
	out, err := frame.Encode(append([]byte{command}, args...))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	trace.RecordTX(out, fmt.Sprintf("Cmd 0x%02X", command))
	if err := s.port.Write(out); err != nil {
		return nil, transportFailure("write", PortName(s.port), ErrTransportWrite, err)
	}

	if err := s.readACK(trace, command); err != nil {
		return nil, err
	}
	if err := s.waitReady(ctx, trace, command); err != nil {
		return nil, err
	}
	return s.readResponse(trace, command)
}

func (s *Session) readACK(trace *TraceBuffer, command byte) error {
	ack, err := s.port.Read(frame.AckLength)
	if err != nil {
		Debugf("command 0x%02X: ACK read failed: %v", command, err)
		return fmt.Errorf("%w: %w", ErrNoACK, transportFailure("read", PortName(s.port), ErrTransportRead, err))
	}

	switch {
	case frame.IsACK(ack):
		trace.RecordRX(ack, "ACK")
		return nil
	case frame.IsNACK(ack):
		trace.RecordRX(ack, "NACK")
		Debugf("command 0x%02X: NACK instead of ACK", command)
		return fmt.Errorf("%w: %w", ErrNoACK, ErrNACKReceived)
	default:
		trace.RecordRX(ack, "expected ACK")
		Debugf("command 0x%02X: bad ACK % X", command, ack)
		return fmt.Errorf("%w: got % X", ErrNoACK, ack)
	}
}

// waitReady polls the port until a response is pending. Each miss yields
// for ReadyPollInterval. On timeout or cancellation the command is aborted
// so a late response cannot be mistaken for the next one.
func (s *Session) waitReady(ctx context.Context, trace *TraceBuffer, command byte) error {
	start := s.clock.Now()
	for !s.port.IsReady() {
		if s.clock.Now().Sub(start) >= s.readyTimeout {
			trace.RecordTimeout(fmt.Sprintf("no response after %v", s.readyTimeout))
			Debugf("command 0x%02X: not ready after %v, aborting", command, s.readyTimeout)
			_ = s.abort(trace)
			return fmt.Errorf("%w: command 0x%02X after %v", ErrTimeout, command, s.readyTimeout)
		}
		if err := s.clock.Sleep(ctx, ReadyPollInterval); err != nil {
			_ = s.abort(trace)
			return err
		}
	}
	return nil
}

func (s *Session) readResponse(trace *TraceBuffer, command byte) ([]byte, error) {
	header, err := s.port.Read(frame.HeaderLength)
	if err != nil {
		return nil, transportFailure("read", PortName(s.port), ErrTransportRead, err)
	}
	trace.RecordRX(header, "header")

	payloadLen, err := frame.DecodeHeader(header, command)
	if err != nil {
		Debugf("command 0x%02X: bad response header % X: %v", command, header, err)
		return nil, fmt.Errorf("response to 0x%02X: %w", command, err)
	}

	// payload + DCS + postamble
	body, err := s.port.Read(payloadLen + 2)
	if err != nil {
		return nil, transportFailure("read", PortName(s.port), ErrTransportRead, err)
	}
	trace.RecordRX(body, "body")

	payload, err := frame.DecodeResponse(header, body, command)
	if err != nil {
		Debugf("command 0x%02X: bad response body % X: %v", command, body, err)
		return nil, fmt.Errorf("response to 0x%02X: %w", command, err)
	}
	return payload, nil
}

func (s *Session) abort(trace *TraceBuffer) error {
	if trace != nil {
		trace.RecordTX(frame.AckFrame, "abort")
	}
	if err := s.port.Write(frame.AckFrame); err != nil {
		Debugf("abort: ACK write failed: %v", err)
		return transportFailure("write", PortName(s.port), ErrTransportWrite, err)
	}
	return nil
}
