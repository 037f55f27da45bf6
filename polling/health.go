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
	"fmt"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
)

// Prober is what the health monitor needs from the reader. *pn532.Device
// implements it.
type Prober interface {
	FirmwareVersion(ctx context.Context) (*pn532.FirmwareVersion, error)
	Initialize(ctx context.Context) error
}

// HealthState is a snapshot of the health monitor.
type HealthState struct {
	LastCheck           time.Time
	Fault               error // last probe error while unhealthy
	ConsecutiveFailures int
	Healthy             bool
}

// HealthMonitor probes the reader periodically and re-initializes it after
// too many consecutive failures.
type HealthMonitor struct {
	prober      Prober
	clock       pn532.Clock
	onUnhealthy []func(error)
	onRecovered []func()
	onReset     []func()
	state       HealthState
	config      HealthCheckConfig
	mu          syncutil.RWMutex
}

// NewHealthMonitor creates a monitor that starts out healthy. A nil clock
// uses the system clock.
func NewHealthMonitor(prober Prober, clock pn532.Clock, config HealthCheckConfig) *HealthMonitor {
	if clock == nil {
		clock = pn532.SystemClock()
	}
	if config.MaxFailedChecks < MinFailedChecks {
		config.MaxFailedChecks = DefaultHealthCheckConfig().MaxFailedChecks
	}
	return &HealthMonitor{
		prober: prober,
		clock:  clock,
		config: config,
		state:  HealthState{Healthy: true},
	}
}

// Healthy implements HealthGate.
func (h *HealthMonitor) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Healthy
}

// State returns a snapshot of the monitor.
func (h *HealthMonitor) State() HealthState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// OnUnhealthy registers fn to be called with the probe error when the
// reader becomes unhealthy.
func (h *HealthMonitor) OnUnhealthy(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onUnhealthy = append(h.onUnhealthy, fn)
}

// OnRecovered registers fn to be called when an unhealthy reader answers
// again or is re-initialized.
func (h *HealthMonitor) OnRecovered(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecovered = append(h.onRecovered, fn)
}

// OnReset registers fn to be called after a successful automatic
// re-initialization, before the OnRecovered subscribers.
func (h *HealthMonitor) OnReset(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReset = append(h.onReset, fn)
}

// Check runs one health tick. It returns the probe error, joined with the
// re-initialization error when an automatic reset was attempted and failed.
// A successful reset makes the tick succeed.
func (h *HealthMonitor) Check(ctx context.Context) error {
	_, err := h.prober.FirmwareVersion(ctx)
	if err == nil {
		h.recovered()
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	h.mu.Lock()
	h.state.ConsecutiveFailures++
	h.state.LastCheck = h.clock.Now()
	failures := h.state.ConsecutiveFailures
	reached := failures >= h.config.MaxFailedChecks
	wentDown := reached && h.state.Healthy
	if reached {
		h.state.Healthy = false
		h.state.Fault = err
	}
	listeners := append([]func(error){}, h.onUnhealthy...)
	h.mu.Unlock()

	pn532.Debugf("health: probe failed (%d/%d): %v", failures, h.config.MaxFailedChecks, err)
	if wentDown {
		pn532.Debugf("health: reader unhealthy")
		for _, fn := range listeners {
			fn(err)
		}
	}

	if !reached || !h.config.AutoReset {
		return err
	}
	return h.reset(ctx, err)
}

func (h *HealthMonitor) reset(ctx context.Context, probeErr error) error {
	if err := h.clock.Sleep(ctx, h.config.ResetDelay); err != nil {
		return fmt.Errorf("%w (reset abandoned: %w)", probeErr, err)
	}

	if err := h.prober.Initialize(ctx); err != nil {
		pn532.Debugf("health: re-initialization failed: %v", err)
		return fmt.Errorf("%w (reset failed: %w)", probeErr, err)
	}

	pn532.Debugf("health: reader re-initialized")
	h.mu.RLock()
	resets := append([]func(){}, h.onReset...)
	h.mu.RUnlock()
	for _, fn := range resets {
		fn()
	}
	h.recovered()
	return nil
}

func (h *HealthMonitor) recovered() {
	h.mu.Lock()
	wasDown := !h.state.Healthy
	h.state = HealthState{Healthy: true, LastCheck: h.clock.Now()}
	listeners := append([]func(){}, h.onRecovered...)
	h.mu.Unlock()

	if !wasDown {
		return
	}
	pn532.Debugf("health: reader recovered")
	for _, fn := range listeners {
		fn()
	}
}
