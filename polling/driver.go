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

// Driver hosts a reader: it initializes the chip and runs the poll and
// health ticks, never two at once.
type Driver struct {
	device *pn532.Device
	poller *Poller
	health *HealthMonitor
	config Config
	mu     syncutil.Mutex
}

// NewDriver validates config and wires a Poller and HealthMonitor to
// device. A nil config uses DefaultConfig. Health checks, when enabled,
// gate polling and clear the poll backoff after an automatic reset.
func NewDriver(device *pn532.Device, config *Config) (*Driver, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: nil device", pn532.ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		device: device,
		config: *config,
		poller: NewPoller(device, device.Clock(), config.PollInterval),
		health: NewHealthMonitor(device, device.Clock(), config.HealthCheck),
	}
	if config.HealthCheck.Enabled {
		d.poller.SetHealthGate(d.health)
		d.health.OnReset(d.poller.ResetBackoff)
	}
	return d, nil
}

// Device returns the driven reader.
func (d *Driver) Device() *pn532.Device {
	return d.device
}

// Poller returns the poller, for subscribing to tag events.
func (d *Driver) Poller() *Poller {
	return d.poller
}

// Health returns the health monitor, for subscribing to health events.
func (d *Driver) Health() *HealthMonitor {
	return d.health
}

// Setup initializes the chip.
func (d *Driver) Setup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device.Initialize(ctx)
}

// Poll runs one scan cycle.
func (d *Driver) Poll(ctx context.Context) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poller.Poll(ctx)
}

// CheckHealth runs one health tick. It does nothing when health checks are
// disabled.
func (d *Driver) CheckHealth(ctx context.Context) error {
	if !d.config.HealthCheck.Enabled {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.health.Check(ctx)
}

// Run initializes the chip, polls once, then keeps running the poll and
// health ticks until ctx is done or a poll error shows the reader is gone.
// A poll tick that arrives long after the previous one (host sleep) is
// followed by an immediate health check.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.Setup(ctx); err != nil {
		return err
	}

	pollTicker := time.NewTicker(d.config.PollInterval)
	defer pollTicker.Stop()

	var healthC <-chan time.Time
	if d.config.HealthCheck.Enabled {
		healthTicker := time.NewTicker(d.config.HealthCheck.Interval)
		defer healthTicker.Stop()
		healthC = healthTicker.C
	}

	lastPoll := time.Now()
	if err := d.pollTick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-pollTicker.C:
			if d.config.SleepRecovery.DetectSleep(now.Sub(lastPoll), d.config.PollInterval) {
				pn532.Debugf("driver: %v since last poll, checking reader", now.Sub(lastPoll))
				if err := d.healthTick(ctx); err != nil {
					return err
				}
			}
			lastPoll = now
			if err := d.pollTick(ctx); err != nil {
				return err
			}
		case <-healthC:
			if err := d.healthTick(ctx); err != nil {
				return err
			}
		}
	}
}

// pollTick returns only errors that should stop Run.
func (d *Driver) pollTick(ctx context.Context) error {
	_, err := d.Poll(ctx)
	if pn532.IsFatal(err) {
		return fmt.Errorf("polling stopped: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (d *Driver) healthTick(ctx context.Context) error {
	err := d.CheckHealth(ctx)
	if pn532.IsFatal(err) {
		return fmt.Errorf("health check stopped: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
