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

// Package config loads the reader's YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/polling"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file. Pointer fields are nil when
// the key is absent, so an explicit zero survives Normalize and fails
// Validate.
type Config struct {
	HealthCheckEnabled  *bool           `yaml:"health_check_enabled"`
	AutoResetOnFailure  *bool           `yaml:"auto_reset_on_failure"`
	RFFieldEnabled      *bool           `yaml:"rf_field_enabled"`
	RFReactivate        *bool           `yaml:"rf_reactivate"`
	Transport           TransportConfig `yaml:"transport"`
	Sensors             []SensorConfig  `yaml:"sensors"`
	UpdateInterval      *time.Duration  `yaml:"update_interval"`
	HealthCheckInterval *time.Duration  `yaml:"health_check_interval"`
	MaxFailedChecks     *int            `yaml:"max_failed_checks"`
}

// ---- TRANSPORT ----

// TransportConfig selects the bus adapter.
type TransportConfig struct {
	Type   string `yaml:"type"`   // uart, i2c or spi
	Device string `yaml:"device"` // /dev/ttyUSB0, /dev/i2c-1, SPI0.0
}

// ---- SENSORS ----

// SensorConfig binds a named presence sensor to one card UID.
type SensorConfig struct {
	Name string `yaml:"name"`
	UID  string `yaml:"uid"` // 74-10-37-94 or 74:10:37:94
}

// Load reads, decodes and normalizes the file at path. The result still
// has to pass Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults. Unknown keys are rejected.
// An empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	Normalize(cfg)
	return cfg, nil
}

// PollingConfig converts the file settings to a polling.Config.
func (c *Config) PollingConfig() *polling.Config {
	pc := polling.DefaultConfig()
	pc.PollInterval = value(c.UpdateInterval)
	pc.HealthCheck.Enabled = boolValue(c.HealthCheckEnabled)
	pc.HealthCheck.Interval = value(c.HealthCheckInterval)
	pc.HealthCheck.AutoReset = boolValue(c.AutoResetOnFailure)
	pc.HealthCheck.MaxFailedChecks = value(c.MaxFailedChecks)
	return pc
}

// DeviceOptions converts the RF settings to device options. With the field
// disabled it is switched off between scans.
func (c *Config) DeviceOptions() []pn532.Option {
	return []pn532.Option{
		pn532.WithIdleRFOff(!boolValue(c.RFFieldEnabled)),
		pn532.WithRFReactivation(boolValue(c.RFReactivate)),
	}
}

// SensorUIDs returns each sensor's parsed UID, in file order.
func (c *Config) SensorUIDs() ([]pn532.UID, error) {
	uids := make([]pn532.UID, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		uid, err := pn532.ParseUID(s.UID)
		if err != nil {
			return nil, fmt.Errorf("sensor %q: %w", s.Name, err)
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
