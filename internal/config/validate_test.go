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

package config

import (
	"testing"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a normalized configuration that passes Validate.
func validConfig() *Config {
	cfg := &Config{
		Transport: TransportConfig{Type: "spi", Device: "SPI0.0"},
		Sensors: []SensorConfig{
			{Name: "card", UID: "74-10-37-94"},
		},
	}
	Normalize(cfg)
	return cfg
}

func ptr[T any](v T) *T {
	return &v
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing_type", mutate: func(c *Config) { c.Transport.Type = "" }, wantErr: true},
		{name: "usb_type", mutate: func(c *Config) { c.Transport.Type = "usb" }, wantErr: true},
		{name: "missing_device", mutate: func(c *Config) { c.Transport.Device = "" }, wantErr: true},
		{name: "zero_interval", mutate: func(c *Config) { c.UpdateInterval = ptr(time.Duration(0)) }, wantErr: true},
		{name: "unset_interval", mutate: func(c *Config) { c.UpdateInterval = nil }, wantErr: true},
		{name: "negative_interval", mutate: func(c *Config) { c.UpdateInterval = ptr(-time.Second) }, wantErr: true},
		{name: "zero_health_interval", mutate: func(c *Config) { c.HealthCheckInterval = ptr(time.Duration(0)) }, wantErr: true},
		{name: "max_failed_zero", mutate: func(c *Config) { c.MaxFailedChecks = ptr(0) }, wantErr: true},
		{name: "max_failed_eleven", mutate: func(c *Config) { c.MaxFailedChecks = ptr(11) }, wantErr: true},
		{name: "max_failed_one", mutate: func(c *Config) { c.MaxFailedChecks = ptr(1) }},
		{name: "max_failed_ten", mutate: func(c *Config) { c.MaxFailedChecks = ptr(10) }},
		{
			name: "health_disabled_skips_health_keys",
			mutate: func(c *Config) {
				c.HealthCheckEnabled = ptr(false)
				c.MaxFailedChecks = ptr(50)
				c.HealthCheckInterval = ptr(time.Duration(0))
			},
		},
		{name: "sensor_without_name", mutate: func(c *Config) { c.Sensors[0].Name = "" }, wantErr: true},
		{
			name: "duplicate_sensor",
			mutate: func(c *Config) {
				c.Sensors = append(c.Sensors, SensorConfig{Name: "card", UID: "01-02-03-04"})
			},
			wantErr: true,
		},
		{name: "uid_single_digit", mutate: func(c *Config) { c.Sensors[0].UID = "74-1-37-94" }, wantErr: true},
		{name: "uid_not_hex", mutate: func(c *Config) { c.Sensors[0].UID = "74-10-37-ZZ" }, wantErr: true},
		{name: "uid_empty", mutate: func(c *Config) { c.Sensors[0].UID = "" }, wantErr: true},
		{name: "uid_colons", mutate: func(c *Config) { c.Sensors[0].UID = "74:10:37:94" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidate_UIDErrorIsWrapped(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Sensors[0].UID = "xyz"

	err := Validate(cfg)
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, pn532.ErrInvalidUID)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	t.Parallel()

	cfg := &Config{Transport: TransportConfig{Type: "I2C", Device: "/dev/i2c-1"}}
	_ = Validate(cfg)

	assert.Equal(t, "I2C", cfg.Transport.Type)
	assert.Nil(t, cfg.UpdateInterval)
	assert.Nil(t, cfg.HealthCheckEnabled)
}

func TestValidate_Nil(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, Validate(nil), ErrInvalid)
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		HealthCheckEnabled: ptr(false),
		RFFieldEnabled:     ptr(true),
		UpdateInterval:     ptr(3 * time.Second),
		MaxFailedChecks:    ptr(0),
	}
	Normalize(cfg)

	assert.False(t, *cfg.HealthCheckEnabled)
	assert.True(t, *cfg.RFFieldEnabled)
	assert.Equal(t, 3*time.Second, *cfg.UpdateInterval)
	assert.Equal(t, 0, *cfg.MaxFailedChecks)
	assert.Equal(t, DefaultHealthCheckInterval, *cfg.HealthCheckInterval)
	assert.True(t, *cfg.AutoResetOnFailure)

	Normalize(nil)
}
