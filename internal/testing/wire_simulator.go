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

// Package testing provides test utilities including a wire-level PN532 simulator.
//
// The VirtualPN532 type implements the pn532.Port contract (Write, Read,
// IsReady) and simulates the PN532 chip at the frame protocol level, as
// specified in the PN532 User Manual section 6.2. Stream exposes the same
// chip as an io.ReadWriter for UART (HSU) adapter tests.
//
// Protocol Reference: PN532 User Manual, section 6.2 "Host controller communication protocol"
// - Normal Information Frame: §6.2.1.1
// - ACK Frame: §6.2.1.3
// - NACK Frame: §6.2.1.4
// - Error Frame: §6.2.1.5
package testing

import (
	"bytes"
	"errors"
	"io"

	"github.com/ZaparooProject/go-pn532-presence/internal/frame"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
)

// PN532 Protocol Constants from PN532 User Manual §6.2.1
const (
	// Error frame TFI (§6.2.1.5)
	tfiError = 0x7F
)

// ACK and NACK frames from PN532 User Manual §6.2.1.3 and §6.2.1.4
var (
	ACKFrame  = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	NACKFrame = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

// PN532 Command codes from PN532 User Manual §7 (Table 12)
const (
	CmdGetFirmwareVersion  = 0x02 // §7.2.2
	CmdSAMConfiguration    = 0x14 // §7.2.10
	CmdRFConfiguration     = 0x32 // §7.3.1
	CmdInListPassiveTarget = 0x4A // §7.3.5
)

// Errors returned by injected faults.
var (
	ErrInjectedWrite = errors.New("simulated bus write failure")
	ErrInjectedRead  = errors.New("simulated bus read failure")
)

// SimulatorState tracks the internal state of the simulated PN532
type SimulatorState struct {
	RFFieldOn     bool
	SAMConfigured bool
}

// VirtualPN532 simulates a PN532 chip at the wire protocol level.
//
// Each command frame is answered with an ACK that is immediately readable,
// followed by a response frame that becomes readable once the ACK has been
// consumed. Writing an ACK frame while a response is pending aborts it.
type VirtualPN532 struct {
	overrides    map[byte][]byte
	ack          []byte
	response     []byte
	lastResponse []byte
	commands     []byte
	tags         []*VirtualTag
	rxBuffer     bytes.Buffer
	mu           syncutil.Mutex
	firmware     [4]byte
	state        SimulatorState
	aborts       int

	dropACKs       int
	nacks          int
	stalls         int
	checksumErrors int
	writeFailures  int
	readFailures   int
	stalled        bool
	offline        bool
}

// NewVirtualPN532 creates a new wire-level PN532 simulator.
// The simulator starts with no RF field, no SAM configuration and no tags.
func NewVirtualPN532() *VirtualPN532 {
	return &VirtualPN532{
		// Default firmware version: PN532 v1.6 (from manual §7.2.2)
		firmware:  [4]byte{0x32, 0x01, 0x06, 0x07},
		overrides: make(map[byte][]byte),
	}
}

// Write receives a frame from the host controller.
func (v *VirtualPN532) Write(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.writeFailures > 0 {
		v.writeFailures--
		return ErrInjectedWrite
	}

	v.rxBuffer.Write(data)
	v.processReceivedData()
	return nil
}

// Read returns exactly n bytes. Bytes beyond what the chip has queued read
// as 0x00, as an idle bus does.
func (v *VirtualPN532) Read(n int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.readFailures > 0 {
		v.readFailures--
		return nil, ErrInjectedRead
	}

	out := make([]byte, n)
	v.drain(out)
	return out, nil
}

// IsReady reports whether an ACK or a response is waiting to be read.
func (v *VirtualPN532) IsReady() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.available() > 0
}

func (*VirtualPN532) String() string {
	return "virtual-pn532"
}

func (v *VirtualPN532) available() int {
	if len(v.ack) > 0 {
		return len(v.ack)
	}
	if v.stalled {
		return 0
	}
	return len(v.response)
}

// drain copies queued bytes into buf, ACK first, and returns the count.
func (v *VirtualPN532) drain(buf []byte) int {
	n := copy(buf, v.ack)
	v.ack = v.ack[n:]
	if len(v.ack) == 0 && !v.stalled && n < len(buf) {
		m := copy(buf[n:], v.response)
		v.response = v.response[m:]
		n += m
	}
	return n
}

// Stream returns an io.ReadWriter view of the chip as seen over HSU: reads
// return whatever has been queued, possibly nothing, without padding.
func (v *VirtualPN532) Stream() io.ReadWriter {
	return stream{v: v}
}

type stream struct {
	v *VirtualPN532
}

func (s stream) Write(data []byte) (int, error) {
	if err := s.v.Write(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (s stream) Read(buf []byte) (int, error) {
	s.v.mu.Lock()
	defer s.v.mu.Unlock()

	if s.v.readFailures > 0 {
		s.v.readFailures--
		return 0, ErrInjectedRead
	}
	return s.v.drain(buf), nil
}

// AddTag adds a virtual tag that can be detected by InListPassiveTarget.
func (v *VirtualPN532) AddTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tags = append(v.tags, tag)
}

// SetTag removes all existing tags and adds a single tag.
func (v *VirtualPN532) SetTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tags = []*VirtualTag{tag}
}

// RemoveAllTags removes all virtual tags.
func (v *VirtualPN532) RemoveAllTags() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tags = nil
}

// SetFirmwareVersion configures the firmware version returned by GetFirmwareVersion.
func (v *VirtualPN532) SetFirmwareVersion(ic, ver, rev, support byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.firmware = [4]byte{ic, ver, rev, support}
}

// OverrideResponse makes every later cmd answer with payload (after the
// response opcode) instead of the simulated result.
func (v *VirtualPN532) OverrideResponse(cmd byte, payload []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overrides[cmd] = append([]byte(nil), payload...)
}

// ClearOverrides removes all response overrides.
func (v *VirtualPN532) ClearOverrides() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.overrides)
}

// DropNextACKs makes the chip ignore the next n command frames entirely.
func (v *VirtualPN532) DropNextACKs(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropACKs = n
}

// DropNextACK makes the chip ignore the next command frame.
func (v *VirtualPN532) DropNextACK() {
	v.DropNextACKs(1)
}

// InjectNACK answers the next command frame with a NACK instead of an ACK.
func (v *VirtualPN532) InjectNACK() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nacks++
}

// StallNextResponses acknowledges the next n commands but never signals
// their responses as ready.
func (v *VirtualPN532) StallNextResponses(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stalls = n
}

// InjectChecksumError causes the next response to have an invalid checksum.
func (v *VirtualPN532) InjectChecksumError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checksumErrors++
}

// FailNextWrites makes the next n Write calls fail with ErrInjectedWrite.
func (v *VirtualPN532) FailNextWrites(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.writeFailures = n
}

// FailNextReads makes the next n Read calls fail with ErrInjectedRead.
func (v *VirtualPN532) FailNextReads(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.readFailures = n
}

// SetOffline simulates a chip that has stopped responding: frames are
// swallowed without ACK until it is brought back online.
func (v *VirtualPN532) SetOffline(offline bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offline = offline
}

// GetState returns the current simulator state.
func (v *VirtualPN532) GetState() SimulatorState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Commands returns the command codes received, in order.
func (v *VirtualPN532) Commands() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.commands...)
}

// CommandCount returns how many times cmd was received.
func (v *VirtualPN532) CommandCount(cmd byte) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return bytes.Count(v.commands, []byte{cmd})
}

// ClearCommandLog forgets the commands received so far.
func (v *VirtualPN532) ClearCommandLog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commands = nil
}

// Aborts returns how many pending commands the host aborted with an ACK.
func (v *VirtualPN532) Aborts() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.aborts
}

// HasPendingResponse returns true if a response frame is queued, ready or not.
func (v *VirtualPN532) HasPendingResponse() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.response) > 0
}

// Reset clears all state, buffers and injected faults. Tags are kept.
func (v *VirtualPN532) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer.Reset()
	v.ack, v.response, v.lastResponse = nil, nil, nil
	v.state = SimulatorState{}
	v.dropACKs, v.nacks, v.stalls, v.checksumErrors = 0, 0, 0, 0
	v.writeFailures, v.readFailures = 0, 0
	v.stalled, v.offline = false, false
}

// processReceivedData parses frames from the receive buffer and generates responses.
func (v *VirtualPN532) processReceivedData() {
	for {
		data := v.rxBuffer.Bytes()
		if len(data) < frame.AckLength {
			return
		}

		// ACK from the host aborts the current operation (§6.2.2.1.d)
		if bytes.HasPrefix(data, ACKFrame) {
			v.rxBuffer.Next(len(ACKFrame))
			if len(v.response) > 0 || len(v.ack) > 0 {
				v.aborts++
			}
			v.ack, v.response, v.stalled = nil, nil, false
			continue
		}

		// NACK from the host asks for the last response again (§6.2.1.4)
		if bytes.HasPrefix(data, NACKFrame) {
			v.rxBuffer.Next(len(NACKFrame))
			if v.lastResponse != nil {
				v.response = append([]byte(nil), v.lastResponse...)
			}
			continue
		}

		startIdx := findFrameStart(data)
		if startIdx < 0 {
			// Keep a trailing 0x00 that may start the next frame
			if data[len(data)-1] == frame.StartCode1 {
				v.rxBuffer.Next(len(data) - 1)
			} else {
				v.rxBuffer.Reset()
			}
			return
		}
		if startIdx > 0 {
			v.rxBuffer.Next(startIdx)
			data = v.rxBuffer.Bytes()
		}

		frameData, frameLen, err := parseFrame(data)
		if errors.Is(err, errIncompleteFrame) {
			return
		}
		if err != nil {
			v.rxBuffer.Next(1)
			continue
		}
		v.rxBuffer.Next(frameLen)
		v.processCommand(frameData)
	}
}

var (
	errIncompleteFrame = errors.New("incomplete frame")
	errBadFrame        = errors.New("bad frame")
)

// findFrameStart locates the 0x00 0xFF start code pattern (§6.2.1.6)
func findFrameStart(data []byte) int {
	return bytes.Index(data, []byte{frame.StartCode1, frame.StartCode2})
}

// parseFrame validates a host frame starting at the start code and returns
// TFI + command + params and the number of bytes consumed.
func parseFrame(data []byte) (frameData []byte, consumed int, err error) {
	// START(2) + LEN(1) + LCS(1) is needed before the length is known
	if len(data) < 4 {
		return nil, 0, errIncompleteFrame
	}

	length := data[2]
	if length+data[3] != 0 || length == 0 {
		return nil, 0, errBadFrame
	}

	// START(2) + LEN(1) + LCS(1) + DATA(length) + DCS(1) + POSTAMBLE(1)
	total := 4 + int(length) + 2
	if len(data) < total {
		return nil, 0, errIncompleteFrame
	}

	body := data[4 : 4+int(length)]
	if frame.Checksum(body) != data[4+int(length)] || body[0] != frame.HostToPn532 {
		return nil, 0, errBadFrame
	}
	return append([]byte(nil), body...), total, nil
}

// processCommand handles a parsed command frame.
// frameData contains: TFI(1) + Command(1) + Params(n)
func (v *VirtualPN532) processCommand(frameData []byte) {
	if v.offline {
		return
	}
	if v.dropACKs > 0 {
		v.dropACKs--
		return
	}
	if v.nacks > 0 {
		v.nacks--
		v.ack = append([]byte(nil), NACKFrame...)
		v.response = nil
		return
	}

	// A new command replaces whatever was still pending
	v.ack = append([]byte(nil), ACKFrame...)
	v.response = nil
	v.stalled = false
	if v.stalls > 0 {
		v.stalls--
		v.stalled = true
	}

	if len(frameData) < 2 {
		v.sendErrorFrame()
		return
	}

	cmd := frameData[1]
	params := frameData[2:]
	v.commands = append(v.commands, cmd)

	var (
		payload []byte
		ok      bool
	)
	switch cmd {
	case CmdGetFirmwareVersion:
		payload, ok = v.firmware[:], true
	case CmdSAMConfiguration:
		payload, ok = v.handleSAMConfiguration(params)
	case CmdRFConfiguration:
		payload, ok = v.handleRFConfiguration(params)
	case CmdInListPassiveTarget:
		payload, ok = v.handleInListPassiveTarget(params)
	}

	if override, found := v.overrides[cmd]; found {
		payload, ok = override, true
	}
	if !ok {
		// Unknown command or bad parameters - syntax error (§6.2.2.2.c)
		v.sendErrorFrame()
		return
	}
	v.sendResponse(cmd, payload)
}

// sendResponse queues a response frame with opcode cmd+1.
func (v *VirtualPN532) sendResponse(cmd byte, payload []byte) {
	out := BuildResponseFrame(cmd, payload)

	if v.checksumErrors > 0 {
		v.checksumErrors--
		out[len(out)-2] ^= 0xFF
	}

	v.lastResponse = out
	v.response = append([]byte(nil), out...)
}

// sendErrorFrame queues the fixed syntax error frame (§6.2.1.5).
func (v *VirtualPN532) sendErrorFrame() {
	out := []byte{
		frame.Preamble,
		frame.StartCode1, frame.StartCode2,
		0x01,     // LEN (just TFI)
		0xFF,     // LCS
		tfiError, // 0x7F
		0x81,     // DCS
		frame.Postamble,
	}
	v.lastResponse = out
	v.response = append([]byte(nil), out...)
}

// handleSAMConfiguration configures the SAM (§7.2.10)
// Input: Mode [Timeout] [IRQ]
func (v *VirtualPN532) handleSAMConfiguration(params []byte) ([]byte, bool) {
	if len(params) < 1 || params[0] < 0x01 || params[0] > 0x04 {
		return nil, false
	}
	v.state.SAMConfigured = true
	return []byte{}, true
}

// handleRFConfiguration configures RF parameters (§7.3.1)
// Input: CfgItem + ConfigurationData
func (v *VirtualPN532) handleRFConfiguration(params []byte) ([]byte, bool) {
	if len(params) < 1 {
		return nil, false
	}
	if params[0] == 0x01 { // RF Field
		if len(params) < 2 {
			return nil, false
		}
		v.state.RFFieldOn = params[1]&0x01 != 0
	}
	return []byte{}, true
}

// handleInListPassiveTarget detects passive targets (§7.3.5)
// Input: MaxTg + BrTy. Only 106 kbps type A (BrTy 0x00) is simulated.
// Response: NbTg + [Tg + SENS_RES(2) + SEL_RES + NFCIDLength + NFCID1]...
func (v *VirtualPN532) handleInListPassiveTarget(params []byte) ([]byte, bool) {
	if len(params) < 2 || params[0] == 0 || params[0] > 2 || params[1] != 0x00 {
		return nil, false
	}
	maxTg := params[0]

	// Turn on RF field (implied by this command)
	v.state.RFFieldOn = true

	response := []byte{0}
	for _, tag := range v.tags {
		if !tag.IsPresent() {
			continue
		}
		if response[0] >= maxTg {
			break
		}
		response[0]++
		response = append(response, tag.targetData(response[0])...)
	}
	return response, true
}
