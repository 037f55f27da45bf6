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

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ScriptedPort is a byte-level port driven by a script: reads are served
// from queued bytes and queued errors in order, readiness follows a queued
// sequence, and every write is recorded.
type ScriptedPort struct {
	writeErr error
	steps    []readStep
	ready    []bool
	writes   [][]byte
	mu       sync.Mutex
	closed   bool
}

type readStep struct {
	err  error
	data []byte
}

// ErrScriptExhausted is returned by Read when nothing more is queued.
var ErrScriptExhausted = errors.New("scripted port: no data queued")

// NewScriptedPort returns an empty script that is always ready.
func NewScriptedPort() *ScriptedPort {
	return &ScriptedPort{}
}

// QueueRead appends bytes to be returned by later Read calls. Consecutive
// chunks form one stream, so a Read may span several of them.
func (p *ScriptedPort) QueueRead(data ...byte) *ScriptedPort {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.steps); n > 0 && p.steps[n-1].err == nil {
		p.steps[n-1].data = append(p.steps[n-1].data, data...)
		return p
	}
	p.steps = append(p.steps, readStep{data: append([]byte(nil), data...)})
	return p
}

// QueueReadError makes the Read that reaches this point of the script fail.
func (p *ScriptedPort) QueueReadError(err error) *ScriptedPort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, readStep{err: err})
	return p
}

// QueueReady sets the values returned by successive IsReady calls. The last
// value repeats once the sequence is used up.
func (p *ScriptedPort) QueueReady(states ...bool) *ScriptedPort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = append(p.ready, states...)
	return p
}

// FailWrites makes every Write return err (nil restores success).
func (p *ScriptedPort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Write records data.
func (p *ScriptedPort) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return io.ErrClosedPipe
	}
	if p.writeErr != nil {
		return p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), data...))
	return nil
}

// Read returns the next n scripted bytes.
func (p *ScriptedPort) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, io.ErrClosedPipe
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		if len(p.steps) == 0 {
			return nil, fmt.Errorf("%w (wanted %d bytes, had %d)", ErrScriptExhausted, n, len(out))
		}
		step := &p.steps[0]
		if step.err != nil {
			err := step.err
			p.steps = p.steps[1:]
			return nil, err
		}
		k := copy(out[len(out):n], step.data)
		out = out[:len(out)+k]
		step.data = step.data[k:]
		if len(step.data) == 0 {
			p.steps = p.steps[1:]
		}
	}
	return out, nil
}

// IsReady returns the next queued readiness value, true by default.
func (p *ScriptedPort) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ready) == 0 {
		return true
	}
	state := p.ready[0]
	if len(p.ready) > 1 {
		p.ready = p.ready[1:]
	}
	return state
}

// Close marks the port closed; later reads and writes fail.
func (p *ScriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (*ScriptedPort) String() string {
	return "scripted"
}

// Writes returns every frame written so far.
func (p *ScriptedPort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Remaining returns the number of queued bytes not yet read.
func (p *ScriptedPort) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.steps {
		n += len(s.data)
	}
	return n
}
