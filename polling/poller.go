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

package polling

import (
	"context"
	"errors"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
)

// Scanner runs the inventory and the idle RF policy. *pn532.Device
// implements it.
type Scanner interface {
	ListPassiveTarget(ctx context.Context) ([]byte, error)
	ApplyIdleRFPolicy(ctx context.Context) error
}

// HealthGate tells the poller whether the reader may be used.
type HealthGate interface {
	Healthy() bool
}

// Poller runs the scan cycle and tracks which card, if any, is present.
//
// Subscribers run inside Poll after the state has been committed. They may
// read the poller's state but must not call Poll.
type Poller struct {
	scanner      Scanner
	gate         HealthGate
	clock        pn532.Clock
	presence     PresenceState
	detected     []func(pn532.UID)
	removed      []func(pn532.UID)
	sensors      []*TagSensor
	backoff      BackoffState
	pollInterval time.Duration
	mu           syncutil.RWMutex
}

// NewPoller creates a poller. pollInterval is the floor of every backoff
// step. A nil clock uses the system clock.
func NewPoller(scanner Scanner, clock pn532.Clock, pollInterval time.Duration) *Poller {
	if clock == nil {
		clock = pn532.SystemClock()
	}
	return &Poller{
		scanner:      scanner,
		clock:        clock,
		pollInterval: pollInterval,
	}
}

// SetHealthGate makes Poll skip cycles while gate reports unhealthy.
func (p *Poller) SetHealthGate(gate HealthGate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = gate
}

// OnTagDetected registers fn to be called once for each card that appears.
// Subscribers run in registration order.
func (p *Poller) OnTagDetected(fn func(pn532.UID)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detected = append(p.detected, fn)
}

// OnTagRemoved registers fn to be called with the last UID once the present
// card is gone.
func (p *Poller) OnTagRemoved(fn func(pn532.UID)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, fn)
}

// AddSensor attaches a per-UID sensor.
func (p *Poller) AddSensor(sensor *TagSensor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sensors = append(p.sensors, sensor)
}

// Sensors returns the attached sensors.
func (p *Poller) Sensors() []*TagSensor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*TagSensor(nil), p.sensors...)
}

// Presence returns a snapshot of the presence state.
func (p *Poller) Presence() PresenceState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.presence.clone()
}

// Backoff returns a snapshot of the backoff state.
func (p *Poller) Backoff() BackoffState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backoff
}

// ResetBackoff clears the retry count and throttle.
func (p *Poller) ResetBackoff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backoff.reset()
}

// Poll runs one scan cycle.
//
// Nothing is sent while the health gate is closed or the backoff throttle
// is running. A failed inventory advances the backoff and leaves presence
// alone; only a completed inventory that reads no card declares the present
// card removed. The error is non-nil only for OutcomeCommandFailed.
func (p *Poller) Poll(ctx context.Context) (Outcome, error) {
	p.mu.Lock()
	if p.gate != nil && !p.gate.Healthy() {
		p.mu.Unlock()
		return OutcomeSkippedUnhealthy, nil
	}
	now := p.clock.Now()
	if p.backoff.throttled(now) {
		p.mu.Unlock()
		return OutcomeThrottled, nil
	}
	p.backoff.LastAttempt = now
	p.mu.Unlock()

	payload, err := p.scanner.ListPassiveTarget(ctx)
	if err != nil {
		return OutcomeCommandFailed, p.fail(ctx, err)
	}

	uid := parseUID(payload)
	outcome := p.commit(uid)

	if err := p.scanner.ApplyIdleRFPolicy(ctx); err != nil {
		pn532.Debugf("poll: switching RF field off failed: %v", err)
	}
	return outcome, nil
}

func (p *Poller) fail(ctx context.Context, err error) error {
	// An abandoned tick says nothing about the reader
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	p.mu.Lock()
	p.backoff.fail(p.pollInterval)
	retries, throttle := p.backoff.Retries, p.backoff.Throttle
	p.mu.Unlock()

	pn532.Debugf("poll: inventory failed (retry %d, next attempt in %v): %v", retries, throttle, err)
	return err
}

// commit applies the result of a completed inventory and fires
// notifications.
func (p *Poller) commit(uid pn532.UID) Outcome {
	p.mu.Lock()
	p.backoff.reset()
	outcome, notifyUID := p.presence.transition(uid)
	sensors := append([]*TagSensor(nil), p.sensors...)
	var subscribers []func(pn532.UID)
	switch outcome {
	case OutcomeNewTag:
		subscribers = append(subscribers, p.detected...)
	case OutcomeTagRemoved:
		subscribers = append(subscribers, p.removed...)
	default:
	}
	p.mu.Unlock()

	now := p.clock.Now()
	for _, s := range sensors {
		s.beginScan()
		switch {
		case uid != nil:
			s.process(uid, now)
		case outcome == OutcomeTagRemoved:
			s.publish(false)
		}
	}

	for _, fn := range subscribers {
		fn(notifyUID.Clone())
	}
	return outcome
}

// parseUID extracts the UID from an inventory response. Responses that
// cannot be parsed count as "no card".
func parseUID(payload []byte) pn532.UID {
	target, err := pn532.ParsePassiveTarget(payload)
	if err != nil {
		pn532.Debugf("poll: ignoring inventory response % X: %v", payload, err)
		return nil
	}
	if target == nil {
		return nil
	}
	return target.UID
}
